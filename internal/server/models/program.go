package models

import "time"

// Location pins a program to a venue.
type Location struct {
	Lat     float64 `json:"lat" yaml:"lat"`
	Lng     float64 `json:"lng" yaml:"lng"`
	Address string  `json:"address" yaml:"address"`
}

// Program is a catalog entry participants can enroll in.
type Program struct {
	ID         string    `json:"id" yaml:"id"`
	Name       string    `json:"name" yaml:"name"`
	Venue      string    `json:"venue" yaml:"venue"`
	When       string    `json:"when" yaml:"when"`
	Cost       float64   `json:"cost" yaml:"cost"`
	Tags       []string  `json:"tags" yaml:"tags"`
	Accessible bool      `json:"accessible" yaml:"accessible"`
	Location   Location  `json:"location" yaml:"location"`
	Reviews    []Review  `json:"reviews,omitempty" yaml:"reviews"`
	CreatedAt  time.Time `json:"createdAt" yaml:"-"`
	UpdatedAt  time.Time `json:"updatedAt" yaml:"-"`

	// Filled in by list queries.
	ReviewCount   int     `json:"reviewCount" yaml:"-"`
	AverageRating float64 `json:"averageRating" yaml:"-"`
}

// Review is a rating left on a program.
type Review struct {
	ID        string    `json:"id" yaml:"id"`
	ProgramID string    `json:"programId" yaml:"-"`
	User      string    `json:"user" yaml:"user"`
	Rating    int       `json:"rating" yaml:"rating"`
	Text      string    `json:"text" yaml:"text"`
	Seeded    bool      `json:"seeded" yaml:"-"`
	CreatedAt time.Time `json:"createdAt" yaml:"-"`
}
