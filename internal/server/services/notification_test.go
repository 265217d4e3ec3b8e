package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/rechub/internal/common"
	"github.com/dmitrijs2005/rechub/internal/logging"
	"github.com/dmitrijs2005/rechub/internal/netx"
	"github.com/dmitrijs2005/rechub/internal/server/auth"
	"github.com/dmitrijs2005/rechub/internal/server/mailer"
	"github.com/dmitrijs2005/rechub/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu       sync.Mutex
	sent     []mailer.Message
	failFor  map[string]bool
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (f *fakeSender) Send(_ context.Context, m mailer.Message) error {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(2 * time.Millisecond)

	if f.failFor[m.To] {
		return errors.New("mailbox unavailable")
	}
	f.mu.Lock()
	f.sent = append(f.sent, m)
	f.mu.Unlock()
	return nil
}

func newDispatcher(st *memStore, sender mailer.Sender) *Dispatcher {
	return NewDispatcher(nil, st, sender, []string{"files.example.org", "minio:9000"}, logging.Nop{})
}

var basicRequest = EmailRequest{ProgramID: "p1", Subject: "Rain check", Message: "Session moved <script>x</script>to <b>Sunday</b>"}

func TestDispatch_SendsToEveryEnrollment(t *testing.T) {
	st := newMemStore()
	st.addEnrollment("p1", "a@x.org")
	st.addEnrollment("p1", "a@x.org")
	st.addEnrollment("p1", "  ")
	st.addEnrollment("p1", "b@x.org")
	st.addEnrollment("p2", "c@x.org")
	sender := &fakeSender{}

	res, err := newDispatcher(st, sender).Dispatch(context.Background(), coach, basicRequest)
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, 3, res.Count, "duplicates preserved, blanks skipped")
	assert.Equal(t, 3, res.Sent)
	assert.Empty(t, res.Failed)
	assert.NotEmpty(t, res.LogID)

	require.Len(t, sender.sent, 3)
	assert.Equal(t, "<div>Session moved to <b>Sunday</b></div>", sender.sent[0].HTML)
	assert.Nil(t, sender.sent[0].Attachment)

	logs := st.snapshot().emailLogs
	require.Len(t, logs, 1)
	assert.Equal(t, "coach@x.org", logs[0].SentBy)
	assert.Equal(t, []string{"a@x.org", "a@x.org", "b@x.org"}, logs[0].Recipients)
	assert.Nil(t, logs[0].AttachmentURL)
}

func TestDispatch_Attachment(t *testing.T) {
	st := newMemStore()
	st.addEnrollment("p1", "a@x.org")
	st.addEnrollment("p1", "b@x.org")
	sender := &fakeSender{}
	d := newDispatcher(st, sender)

	fetches := 0
	d.fetch = func(_ context.Context, rawURL string) (*netx.Attachment, error) {
		fetches++
		return &netx.Attachment{Filename: "flyer.pdf", ContentType: "application/pdf", Data: []byte("pdf")}, nil
	}

	req := basicRequest
	req.AttachmentURL = `https://files.example.org/flyer.pdf?sig="x"&a=1`
	res, err := d.Dispatch(context.Background(), admin, req)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Sent)
	assert.Equal(t, 1, fetches, "fetched once for all recipients")

	for _, m := range sender.sent {
		require.NotNil(t, m.Attachment)
		assert.Equal(t, "flyer.pdf", m.Attachment.Filename)
		assert.Contains(t, m.HTML, `<p>Attachment: <a href="https://files.example.org/flyer.pdf?sig=&#34;x&#34;&amp;a=1">Download</a></p>`)
	}

	logs := st.snapshot().emailLogs
	require.Len(t, logs, 1)
	require.NotNil(t, logs[0].AttachmentURL)
	assert.Equal(t, req.AttachmentURL, *logs[0].AttachmentURL)
}

func TestDispatch_AttachmentErrors(t *testing.T) {
	st := newMemStore()
	st.addEnrollment("p1", "a@x.org")
	d := newDispatcher(st, &fakeSender{})

	req := basicRequest
	req.AttachmentURL = "ftp://files.example.org/x"
	_, err := d.Dispatch(context.Background(), admin, req)
	assert.ErrorIs(t, err, common.ErrInvalidArgument)

	req.AttachmentURL = "https://files.example.org/big.bin"
	d.fetch = func(context.Context, string) (*netx.Attachment, error) { return nil, netx.ErrTooLarge }
	_, err = d.Dispatch(context.Background(), admin, req)
	assert.ErrorIs(t, err, common.ErrInvalidArgument)

	d.fetch = func(context.Context, string) (*netx.Attachment, error) { return nil, errors.New("404") }
	_, err = d.Dispatch(context.Background(), admin, req)
	assert.ErrorIs(t, err, common.ErrUnavailable)
}

func TestDispatch_AttachmentHostAllowList(t *testing.T) {
	st := newMemStore()
	st.addEnrollment("p1", "a@x.org")
	d := newDispatcher(st, &fakeSender{})
	var fetched []string
	d.fetch = func(_ context.Context, rawURL string) (*netx.Attachment, error) {
		fetched = append(fetched, rawURL)
		return &netx.Attachment{Filename: "x", ContentType: "text/plain", Data: []byte("x")}, nil
	}

	for _, raw := range []string{
		"http://169.254.169.254/latest/meta-data/",
		"http://localhost:8080/api/v1/stats/summary",
		"https://files.example.org.evil.test/x",
		"http://minio/rechub/x",
	} {
		req := basicRequest
		req.AttachmentURL = raw
		_, err := d.Dispatch(context.Background(), coach, req)
		assert.ErrorIs(t, err, common.ErrInvalidArgument, raw)
	}
	assert.Empty(t, fetched, "refused hosts are never fetched")

	req := basicRequest
	req.AttachmentURL = "http://MINIO:9000/rechub/attachments/x.pdf"
	_, err := d.Dispatch(context.Background(), coach, req)
	require.NoError(t, err)
	assert.Equal(t, []string{req.AttachmentURL}, fetched)

	none := NewDispatcher(nil, st, &fakeSender{}, nil, logging.Nop{})
	req.AttachmentURL = "https://files.example.org/x"
	_, err = none.Dispatch(context.Background(), coach, req)
	assert.ErrorIs(t, err, common.ErrInvalidArgument)
}

func TestDispatch_SelfRegisteredCoach(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	st.addEnrollment("p1", "a@x.org")

	sess, err := newUserService(st).Register(ctx, "newcoach@x.org", "secret1", models.RoleCoach)
	require.NoError(t, err)
	require.Equal(t, models.RoleCoach, sess.User.Role)

	caller := auth.Identity{UserID: sess.User.ID, Email: sess.User.Email, Role: sess.User.Role}
	res, err := newDispatcher(st, &fakeSender{}).Dispatch(ctx, caller, basicRequest)
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestDispatch_PartialFailure(t *testing.T) {
	st := newMemStore()
	st.addEnrollment("p1", "a@x.org")
	st.addEnrollment("p1", "bad@x.org")
	st.addEnrollment("p1", "c@x.org")
	sender := &fakeSender{failFor: map[string]bool{"bad@x.org": true}}

	res, err := newDispatcher(st, sender).Dispatch(context.Background(), coach, basicRequest)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 3, res.Count)
	assert.Equal(t, 2, res.Sent)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "bad@x.org", res.Failed[0].Email)

	logs := st.snapshot().emailLogs
	require.Len(t, logs, 1)
	assert.Equal(t, []string{"a@x.org", "c@x.org"}, logs[0].Recipients)
	assert.Equal(t, []string{"bad@x.org"}, logs[0].FailedRecipients)
}

func TestDispatch_AllFail(t *testing.T) {
	st := newMemStore()
	st.addEnrollment("p1", "a@x.org")
	sender := &fakeSender{failFor: map[string]bool{"a@x.org": true}}

	_, err := newDispatcher(st, sender).Dispatch(context.Background(), coach, basicRequest)
	assert.ErrorIs(t, err, common.ErrUnavailable)
	assert.Empty(t, st.snapshot().emailLogs)
}

func TestDispatch_BoundedParallelism(t *testing.T) {
	st := newMemStore()
	for i := 0; i < 20; i++ {
		st.addEnrollment("p1", "a@x.org")
	}
	sender := &fakeSender{}

	res, err := newDispatcher(st, sender).Dispatch(context.Background(), coach, basicRequest)
	require.NoError(t, err)
	assert.Equal(t, 20, res.Sent)
	assert.LessOrEqual(t, sender.peak.Load(), int32(SendParallelism))
}

func TestDispatch_SoftOutcomes(t *testing.T) {
	st := newMemStore()
	st.addEnrollment("p2", "")
	d := newDispatcher(st, &fakeSender{})

	res, err := d.Dispatch(context.Background(), coach, basicRequest)
	require.NoError(t, err)
	assert.Equal(t, &DispatchResult{Reason: ReasonNoRecipients}, res)

	req := basicRequest
	req.ProgramID = "p2"
	res, err = d.Dispatch(context.Background(), coach, req)
	require.NoError(t, err)
	assert.Equal(t, &DispatchResult{Reason: ReasonNoValidEmails}, res)
	assert.Empty(t, st.snapshot().emailLogs)
}

func TestDispatch_Rejections(t *testing.T) {
	st := newMemStore()
	st.addEnrollment("p1", "a@x.org")
	ctx := context.Background()

	_, err := newDispatcher(st, &fakeSender{}).Dispatch(ctx, guest, basicRequest)
	assert.ErrorIs(t, err, common.ErrUnauthenticated)

	_, err = newDispatcher(st, &fakeSender{}).Dispatch(ctx, participant, basicRequest)
	assert.ErrorIs(t, err, common.ErrPermissionDenied)

	_, err = newDispatcher(st, nil).Dispatch(ctx, admin, basicRequest)
	assert.ErrorIs(t, err, common.ErrUnconfigured)

	for _, req := range []EmailRequest{
		{Subject: "s", Message: "m"},
		{ProgramID: "p1", Subject: " ", Message: "m"},
		{ProgramID: "p1", Subject: "s", Message: "  "},
	} {
		_, err = newDispatcher(st, &fakeSender{}).Dispatch(ctx, admin, req)
		assert.ErrorIs(t, err, common.ErrInvalidArgument)
	}

	st.failures["Enrollments.ListByProgram"] = errBoom{}
	_, err = newDispatcher(st, &fakeSender{}).Dispatch(ctx, admin, basicRequest)
	assert.Error(t, err)
}

func TestDispatch_LogFailureStillSucceeds(t *testing.T) {
	st := newMemStore()
	st.addEnrollment("p1", "a@x.org")
	st.failures["EmailLogs.Create"] = errBoom{}

	res, err := newDispatcher(st, &fakeSender{}).Dispatch(context.Background(), coach, basicRequest)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Empty(t, res.LogID)
}

func TestRenderEmailBody(t *testing.T) {
	assert.Equal(t, "<div>hi</div>", RenderEmailBody("hi", ""))
	assert.Equal(t, `<div>hi</div><p>Attachment: <a href="https://x.org/a?b=1&amp;c=2">Download</a></p>`,
		RenderEmailBody("hi", "https://x.org/a?b=1&c=2"))
}
