package common

// AuthorizationHeaderName is the HTTP header carrying the bearer access
// token on outbound requests.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the token in AuthorizationHeaderName.
const BearerPrefix = "Bearer "
