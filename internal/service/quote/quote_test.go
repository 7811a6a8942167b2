package quote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doby176/light/internal/domain/models"
	"github.com/doby176/light/pkg/cache"
	"github.com/doby176/light/pkg/util"
)

const keyStatsPage = `<html><body>
<div class="Summary-subsection">
  <h3 class="Summary-title">Key Stats</h3>
  <ul class="Summary-data">
    <li class="Summary-stat"><span class="Summary-label">Open</span><span class="Summary-value">404.00</span></li>
    <li class="Summary-stat"><span class="Summary-label">Day High</span><span class="Summary-value">410.00</span></li>
    <li class="Summary-stat"><span class="Summary-label">Prev Close</span><span class="Summary-value">400.00</span></li>
  </ul>
</div>
</body></html>`

func et(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, util.MarketLocation())
}

func TestCalendarMarketDate(t *testing.T) {
	cal := NewCalendar(util.MarketLocation())
	cases := []struct {
		name string
		now  time.Time
		open bool
		date string
	}{
		{"wednesday session", et(2024, 3, 6, 10, 0), true, "2024-03-06"},
		{"first minute", et(2024, 3, 6, 9, 31), true, "2024-03-06"},
		{"before open", et(2024, 3, 6, 9, 30), false, "2024-03-05"},
		{"at close", et(2024, 3, 6, 16, 0), true, "2024-03-06"},
		{"after close", et(2024, 3, 6, 16, 1), false, "2024-03-05"},
		{"monday pre-market", et(2024, 3, 4, 8, 0), false, "2024-03-01"},
		{"saturday", et(2024, 3, 9, 12, 0), false, "2024-03-08"},
		{"sunday", et(2024, 3, 10, 12, 0), false, "2024-03-08"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.open, cal.IsOpen(tc.now))
			assert.Equal(t, tc.date, cal.MarketDate(tc.now))
		})
	}
	assert.Equal(t, time.Friday, cal.MarketWeekday(et(2024, 3, 9, 12, 0)))
	// UTC input is converted first
	assert.Equal(t, "2024-03-06", cal.MarketDate(time.Date(2024, 3, 6, 15, 0, 0, 0, time.UTC)))
}

func TestParseQuote(t *testing.T) {
	q, err := ParseQuote(strings.NewReader(keyStatsPage))
	require.NoError(t, err)
	assert.Equal(t, "404.00", q.Open)
	assert.Equal(t, "400.00", q.PrevClose)
	assert.Equal(t, "1.00%", q.GapPct)
	require.NotNil(t, q.GapValue)
	assert.InDelta(t, 1.0, *q.GapValue, 1e-9)
}

func TestParseQuoteUnparseablePrice(t *testing.T) {
	page := strings.Replace(keyStatsPage, "400.00", "--", 1)
	q, err := ParseQuote(strings.NewReader(page))
	require.NoError(t, err)
	assert.Equal(t, "N/A", q.GapPct)
	assert.Nil(t, q.GapValue)
}

func TestParseQuoteMissingSection(t *testing.T) {
	_, err := ParseQuote(strings.NewReader(`<div class="Summary-subsection"><h3 class="Summary-title">Earnings</h3></div>`))
	assert.ErrorIs(t, err, ErrNoKeyStats)
}

func TestScraperFetch(t *testing.T) {
	var ua string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(keyStatsPage))
	}))
	defer srv.Close()

	q, err := NewScraper(srv.URL, time.Second).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.00%", q.GapPct)
	assert.Contains(t, ua, "Chrome/91")
}

type fakeFetcher struct {
	mu    sync.Mutex
	calls int
	err   error
	open  string
	delay time.Duration
}

func (f *fakeFetcher) Fetch(ctx context.Context) (models.Quote, error) {
	time.Sleep(f.delay)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return models.Quote{}, f.err
	}
	return models.Quote{Open: f.open, PrevClose: "100.00", GapPct: "1.00%"}, nil
}

func (f *fakeFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

func newTestCache(f *fakeFetcher, clk *testClock, opts ...Option) *Cache {
	opts = append([]Option{WithClock(clk.now)}, opts...)
	return NewCache(f, NewCalendar(util.MarketLocation()), "QQQ", opts...)
}

func TestCacheScrapesOncePerMarketDate(t *testing.T) {
	f := &fakeFetcher{open: "101.00", delay: 20 * time.Millisecond}
	clk := &testClock{t: et(2024, 3, 6, 10, 0)}
	c := newTestCache(f, clk)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q, err := c.Get(ctx)
			assert.NoError(t, err)
			assert.Equal(t, "101.00", q.Open)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, f.count())

	// same market date later in the day
	clk.set(et(2024, 3, 6, 15, 0))
	_, err := c.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, f.count())

	// next session
	clk.set(et(2024, 3, 7, 9, 45))
	cq, err := c.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-07", cq.MarketDate)
	assert.Equal(t, 2, f.count())
}

func TestCacheServesStaleOnError(t *testing.T) {
	f := &fakeFetcher{open: "101.00"}
	clk := &testClock{t: et(2024, 3, 6, 10, 0)}
	c := newTestCache(f, clk)
	ctx := context.Background()

	_, err := c.Get(ctx)
	require.NoError(t, err)

	f.err = errors.New("blocked")
	clk.set(et(2024, 3, 7, 10, 0))
	cq, err := c.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-06", cq.MarketDate)
	assert.Equal(t, "101.00", cq.Data.Open)
}

func TestCacheErrorWithoutStale(t *testing.T) {
	f := &fakeFetcher{err: errors.New("blocked")}
	c := newTestCache(f, &testClock{t: et(2024, 3, 6, 10, 0)})
	_, err := c.Get(context.Background())
	require.Error(t, err)
	_, ok := c.Latest()
	assert.False(t, ok)
}

func TestCacheRefreshForcesScrape(t *testing.T) {
	f := &fakeFetcher{open: "101.00"}
	c := newTestCache(f, &testClock{t: et(2024, 3, 6, 10, 0)})
	ctx := context.Background()
	_, err := c.Get(ctx)
	require.NoError(t, err)
	require.NoError(t, c.Refresh(ctx))
	assert.Equal(t, 2, f.count())
}

func TestCacheNotifiesSubscribers(t *testing.T) {
	f := &fakeFetcher{open: "101.00"}
	c := newTestCache(f, &testClock{t: et(2024, 3, 6, 10, 0)})
	ch, cancel := c.Subscribe()
	defer cancel()

	_, err := c.Get(context.Background())
	require.NoError(t, err)
	select {
	case cq := <-ch:
		assert.Equal(t, "101.00", cq.Data.Open)
	case <-time.After(time.Second):
		t.Fatal("no update delivered")
	}
}

func TestCacheMirrorSharesScrape(t *testing.T) {
	mc := cache.NewMemoryCache(cache.WithMemoryCleanup(0))
	defer mc.Close()
	clk := &testClock{t: et(2024, 3, 6, 10, 0)}
	ctx := context.Background()

	f1 := &fakeFetcher{open: "101.00"}
	f2 := &fakeFetcher{open: "999.00"}
	c1 := newTestCache(f1, clk, WithMirror(mc, time.Hour))
	c2 := newTestCache(f2, clk, WithMirror(mc, time.Hour))

	_, err := c1.Get(ctx)
	require.NoError(t, err)
	q, err := c2.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "101.00", q.Open)
	assert.Equal(t, 0, f2.count())
}

type capturePublisher struct {
	keys []string
}

func (p *capturePublisher) Publish(_ context.Context, key string, _ interface{}) error {
	p.keys = append(p.keys, key)
	return nil
}

func TestCachePublishAndApply(t *testing.T) {
	pub := &capturePublisher{}
	clk := &testClock{t: et(2024, 3, 6, 10, 0)}
	c := newTestCache(&fakeFetcher{open: "101.00"}, clk, WithPublisher(pub))
	_, err := c.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"QQQ"}, pub.keys)

	newer := `{"symbol":"QQQ","data":{"Open":"102.00"},"market_date":"2024-03-06","fetched_at":"2024-03-06T15:05:00Z"}`
	require.NoError(t, c.HandleMessage(context.Background(), nil, []byte(newer)))
	cq, ok := c.Latest()
	require.True(t, ok)
	assert.Equal(t, "102.00", cq.Data.Open)

	older := `{"symbol":"QQQ","data":{"Open":"1.00"},"market_date":"2024-03-05","fetched_at":"2024-03-05T15:05:00Z"}`
	require.NoError(t, c.HandleMessage(context.Background(), nil, []byte(older)))
	cq, _ = c.Latest()
	assert.Equal(t, "102.00", cq.Data.Open)

	assert.Error(t, c.HandleMessage(context.Background(), nil, []byte("{")))
}

func TestHubPushesQuotes(t *testing.T) {
	f := &fakeFetcher{open: "101.00"}
	clk := &testClock{t: et(2024, 3, 6, 10, 0)}
	c := newTestCache(f, clk)
	_, err := c.Get(context.Background())
	require.NoError(t, err)

	hub := NewHub(c, time.Second, nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	var msg Message
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "quote", msg.Type)
	assert.Equal(t, "101.00", msg.Data.Data.Open)

	// the first frame is written after subscribing
	f.mu.Lock()
	f.open = "105.00"
	f.mu.Unlock()
	require.NoError(t, c.Refresh(context.Background()))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "105.00", msg.Data.Data.Open)
	assert.Equal(t, int64(1), hub.Clients())
}
