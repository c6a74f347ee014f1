package engine

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/ingestor/cleaner"
	"github.com/use-agent/ingestor/models"
	"github.com/use-agent/ingestor/page"
	"github.com/use-agent/ingestor/page/pagetest"
	"github.com/use-agent/ingestor/sink"
	"github.com/use-agent/ingestor/strategy"
	"golang.org/x/net/html"
)

type fakeSender struct {
	mu       sync.Mutex
	outcome  sink.Outcome
	err      error
	payloads []*models.Payload
}

func (f *fakeSender) Send(_ context.Context, p *models.Payload) (sink.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, p)
	return f.outcome, f.err
}

func (f *fakeSender) sent() []*models.Payload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*models.Payload(nil), f.payloads...)
}

// stubStrategy matches one host and runs extractFn.
type stubStrategy struct {
	name      string
	host      string
	extractFn func(ctx context.Context, sc *strategy.Context) (*models.Record, error)
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) Matches(u *url.URL) bool {
	if s.host == "panic" {
		panic("broken predicate")
	}
	return page.HostMatches(page.Host(u), s.host)
}

func (s *stubStrategy) Extract(ctx context.Context, sc *strategy.Context) (*models.Record, error) {
	return s.extractFn(ctx, sc)
}

func returning(recType, title string) func(context.Context, *strategy.Context) (*models.Record, error) {
	return func(context.Context, *strategy.Context) (*models.Record, error) {
		return models.NewRecord(recType, title, "body"), nil
	}
}

func failing(context.Context, *strategy.Context) (*models.Record, error) {
	return nil, models.NewExtractError(models.ErrCodeTargetNotFound, "nothing here", nil)
}

type stubReadability struct{}

func (stubReadability) Parse(*html.Node, *url.URL) (cleaner.Article, error) {
	return cleaner.Article{Title: "Readable", Content: "<p>Readable text</p>"}, nil
}

const githubPage = `<html><head><title>org/repo: a tool</title></head><body>
<div id="readme"><h1>Repo</h1><p>Hello</p></div></body></html>`

func TestRun_DeliversSiteRecord(t *testing.T) {
	p := pagetest.New("https://github.com/org/repo", githubPage)
	snd := &fakeSender{outcome: sink.OutcomeDelivered}
	eng := New(p, strategy.Default(time.Second), nil, snd, p)

	report, err := eng.Run(context.Background(), "test")
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, "github", report.Strategy)
	assert.Equal(t, models.TypeGitHub, report.Type)
	assert.False(t, report.Fallback)
	assert.Equal(t, "delivered", report.Outcome)

	sent := snd.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "https://github.com/org/repo", sent[0].URL)
	assert.Equal(t, "github.com", sent[0].Domain)
	assert.Equal(t, "org/repo: a tool", sent[0].Title)
	assert.Equal(t, "/org/repo", sent[0].Metadata["repo"])

	assert.Equal(t, []pagetest.Notice{{Text: "Archived: org/repo: a tool..."}}, p.RecordedNotices())
	assert.Equal(t, report, eng.Last())
}

func TestRun_FallsBackToGeneric(t *testing.T) {
	p := pagetest.New("https://www.reddit.com/r/golang/comments/abc123/title/", `<html><head><title>t</title></head><body></body></html>`)
	snd := &fakeSender{outcome: sink.OutcomeDelivered}
	eng := New(p, strategy.Default(20*time.Millisecond), nil, snd, p, WithReadability(stubReadability{}))

	report, err := eng.Run(context.Background(), "test")
	require.NoError(t, err)

	assert.True(t, report.Fallback)
	assert.Equal(t, "generic", report.Strategy)
	assert.Equal(t, models.TypeGenericArticle, report.Type)

	sent := snd.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "Readable", sent[0].Title)
	assert.Equal(t, "Readable text", sent[0].ContentMarkdown)
}

func TestRun_TotalFailureNotifiesOnce(t *testing.T) {
	p := pagetest.New("https://site.test/a", "<html></html>")
	snd := &fakeSender{}
	site := &stubStrategy{name: "site", host: "site.test", extractFn: failing}
	generic := &stubStrategy{name: "generic", extractFn: func(context.Context, *strategy.Context) (*models.Record, error) {
		return nil, errors.New("generic broke")
	}}
	eng := New(p, []strategy.Strategy{site}, generic, snd, p)

	report, err := eng.Run(context.Background(), "test")
	require.Error(t, err)
	assert.Equal(t, models.ErrCodeTargetNotFound, models.ErrorCode(err))
	assert.Contains(t, err.Error(), "generic broke")
	assert.True(t, report.Fallback)
	assert.Empty(t, report.Outcome)

	assert.Empty(t, snd.sent())
	assert.Equal(t, []pagetest.Notice{{Text: FailureNotice, IsError: true}}, p.RecordedNotices())
}

func TestRun_PayloadUsesAddressAtSendTime(t *testing.T) {
	p := pagetest.New("https://site.test/first", "<html></html>")
	snd := &fakeSender{outcome: sink.OutcomeDelivered}
	site := &stubStrategy{name: "site", host: "site.test", extractFn: func(_ context.Context, sc *strategy.Context) (*models.Record, error) {
		assert.Equal(t, "/first", sc.URL.Path)
		p.SetURL("https://other.test/second")
		return models.NewRecord("site", "T", "b"), nil
	}}
	eng := New(p, []strategy.Strategy{site}, nil, snd, p)

	report, err := eng.Run(context.Background(), "test")
	require.NoError(t, err)
	assert.Equal(t, "https://site.test/first", report.Address)

	sent := snd.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "https://other.test/second", sent[0].URL)
	assert.Equal(t, "other.test", sent[0].Domain)
}

func TestRun_SupersededRunIsDiscarded(t *testing.T) {
	p := pagetest.New("https://slow.test/a", "<html></html>")
	snd := &fakeSender{outcome: sink.OutcomeDelivered}

	started := make(chan struct{})
	slow := &stubStrategy{name: "slow", host: "slow.test", extractFn: func(ctx context.Context, _ *strategy.Context) (*models.Record, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	quick := &stubStrategy{name: "quick", host: "quick.test", extractFn: returning("quick", "Quick")}
	generic := &stubStrategy{name: "generic", extractFn: returning(models.TypePlaceholder, "Stale")}
	eng := New(p, []strategy.Strategy{slow, quick}, generic, snd, p)

	type result struct {
		report *models.RunReport
		err    error
	}
	first := make(chan result, 1)
	go func() {
		r, err := eng.Run(context.Background(), "first")
		first <- result{r, err}
	}()
	<-started

	p.SetURL("https://quick.test/b")
	second, err := eng.Run(context.Background(), "second")
	require.NoError(t, err)
	assert.False(t, second.Discarded)

	var stale result
	select {
	case stale = <-first:
	case <-time.After(2 * time.Second):
		t.Fatal("superseded run did not finish")
	}
	require.NoError(t, stale.err)
	assert.True(t, stale.report.Discarded)
	assert.Empty(t, stale.report.Outcome)

	sent := snd.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "Quick", sent[0].Title)
	assert.Equal(t, []pagetest.Notice{{Text: "Archived: Quick..."}}, p.RecordedNotices())
}

func TestRun_PanickingMatchIsNoMatch(t *testing.T) {
	p := pagetest.New("https://any.test/", "<html></html>")
	snd := &fakeSender{outcome: sink.OutcomeDelivered}
	broken := &stubStrategy{name: "broken", host: "panic", extractFn: failing}
	generic := &stubStrategy{name: "generic", extractFn: returning(models.TypeGenericArticle, "G")}
	eng := New(p, []strategy.Strategy{broken}, generic, snd, p)

	report, err := eng.Run(context.Background(), "test")
	require.NoError(t, err)
	assert.Equal(t, "generic", report.Strategy)
	assert.False(t, report.Fallback)
}

func TestRun_DeliveryOutcomeNotices(t *testing.T) {
	tests := []struct {
		outcome sink.Outcome
		text    string
	}{
		{sink.OutcomeRejected, "Server error saving page."},
		{sink.OutcomeUnreachable, "Backend Server Offline"},
	}
	for _, tt := range tests {
		t.Run(tt.outcome.String(), func(t *testing.T) {
			p := pagetest.New("https://www.youtube.com/watch?v=abc123", "<html><head><title>Clip - YouTube</title></head></html>")
			snd := &fakeSender{outcome: tt.outcome, err: errors.New("nope")}
			eng := New(p, strategy.Default(time.Second), nil, snd, p)

			report, err := eng.Run(context.Background(), "test")
			require.NoError(t, err)
			assert.Equal(t, tt.outcome.String(), report.Outcome)
			assert.Equal(t, "nope", report.Error)
			assert.Equal(t, []pagetest.Notice{{Text: tt.text, IsError: true}}, p.RecordedNotices())
		})
	}
}

func TestRun_TypeIdentifiesStrategy(t *testing.T) {
	cases := map[string]string{
		"https://github.com/org/repo":              models.TypeGitHub,
		"https://www.youtube.com/watch?v=abc123":   models.TypeYouTubeVideo,
		"https://blog.example.com/posts/some-post": models.TypeGenericArticle,
	}
	for addr, want := range cases {
		p := pagetest.New(addr, githubPage)
		snd := &fakeSender{outcome: sink.OutcomeDelivered}
		eng := New(p, strategy.Default(time.Second), nil, snd, p, WithReadability(stubReadability{}))

		_, err := eng.Run(context.Background(), "test")
		require.NoError(t, err, addr)
		sent := snd.sent()
		require.Len(t, sent, 1, addr)
		assert.Equal(t, want, sent[0].Metadata["type"], addr)
	}
}

func TestStrategies(t *testing.T) {
	eng := New(pagetest.New("https://x.test/", ""), strategy.Default(time.Second), nil, &fakeSender{}, nil)
	assert.Equal(t, "reddit,github,youtube,generic", strings.Join(eng.Strategies(), ","))
}
