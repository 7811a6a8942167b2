package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/doby176/light/internal/domain/models"
	domrepo "github.com/doby176/light/internal/domain/repository"
	"github.com/doby176/light/internal/repository"
	"github.com/doby176/light/internal/service/auth"
	"github.com/doby176/light/internal/service/quote"
	"github.com/doby176/light/internal/service/ratelimit"
	"github.com/doby176/light/internal/usecase"
	"github.com/doby176/light/pkg/cache"
	httpx "github.com/doby176/light/pkg/http"
	"github.com/doby176/light/pkg/util"
)

var sample = usecase.SampleRules{
	Tickers:    []string{"QQQ", "NVDA"},
	Years:      []int{2023, 2024},
	EventTypes: []string{"CPI", "FOMC"},
	GapBins:    models.GapBins,
	MaxDates:   20,
}

type candleStub struct{}

func (candleStub) Tickers(context.Context) ([]string, error) {
	return []string{"AAPL", "NVDA", "QQQ"}, nil
}

func (candleStub) Dates(context.Context, string) ([]string, error) {
	return []string{"2024-05-01"}, nil
}

func (candleStub) Candles(_ context.Context, ticker string, day time.Time) ([]models.Candle, error) {
	if day.Format(util.DateLayout) != "2024-05-01" {
		return nil, nil
	}
	start := time.Date(2024, 5, 1, 9, 30, 0, 0, util.MarketLocation())
	out := make([]models.Candle, 10)
	for i := range out {
		out[i] = models.Candle{Ticker: ticker, Timestamp: start.Add(time.Duration(i) * time.Minute),
			Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 100}
	}
	return out, nil
}

func (candleStub) Health(context.Context) error { return nil }
func (candleStub) Close() error                 { return nil }

type eventStub struct{ gaps []models.GapEvent }

func (s eventStub) Gaps(context.Context) ([]models.GapEvent, error) { return s.gaps, nil }
func (eventStub) NewsEvents(context.Context) ([]models.NewsEvent, error) {
	return nil, domrepo.ErrSourceMissing
}
func (eventStub) EconomicEvents(context.Context) ([]models.EconomicEvent, error) { return nil, nil }
func (eventStub) Earnings(context.Context) ([]models.EarningsEvent, error)       { return nil, nil }
func (eventStub) EventMetrics(context.Context) (models.EventMetricsTable, error) {
	return models.EventMetricsTable{}, nil
}

type quoteStub struct{ err error }

func (q quoteStub) Fetch(context.Context) (models.Quote, error) {
	if q.err != nil {
		return models.Quote{}, q.err
	}
	return models.Quote{Open: "101.00", PrevClose: "100.00", GapPct: "1.00%"}, nil
}

func newPolicy(t *testing.T) *usecase.ActionPolicy {
	t.Helper()
	mc := cache.NewMemoryCache(cache.WithMemoryCleanup(0))
	t.Cleanup(func() { _ = mc.Close() })
	window := 12 * time.Hour
	return usecase.NewActionPolicy(usecase.Limiters{
		Main:          ratelimit.NewActionCounter(mc, models.CounterMain, 10, window),
		GapInsights:   ratelimit.NewActionCounter(mc, models.CounterGapInsights, 2, window),
		SampleActions: ratelimit.NewActionCounter(mc, models.CounterSampleActions, 3, window),
		SampleCalls:   ratelimit.NewActionCounter(mc, models.CounterSampleCalls, 3, window),
	}, nil, nil)
}

func newEcho(handlers ...httpx.Handler) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = httpx.HTTPErrorHandler
	e.Use(SessionMiddleware(SessionCookie{Name: "session_id", TTL: time.Hour}))
	for _, h := range handlers {
		h.RegisterRoutes(e)
	}
	return e
}

func newMarketEcho(t *testing.T) *echo.Echo {
	policy := newPolicy(t)
	market := usecase.NewMarketUseCase(candleStub{}, []string{"NVDA", "QQQ"}, util.MarketLocation(), sample, policy, nil)
	gaps := usecase.NewGapsUseCase(eventStub{}, nil, quote.NewCalendar(util.MarketLocation()), sample, policy, nil)
	events := usecase.NewEventsUseCase(eventStub{}, []string{"NVDA", "QQQ"}, sample, policy, nil)
	return newEcho(
		NewMarketHandler(nil, market, policy, sample.GapBins),
		NewInsightsHandler(nil, gaps, events),
	)
}

type request struct {
	method  string
	target  string
	form    url.Values
	cookie  *http.Cookie
	referer string
}

func do(e *echo.Echo, r request) *httptest.ResponseRecorder {
	method := r.method
	if method == "" {
		method = http.MethodGet
	}
	var req *http.Request
	if r.form != nil {
		req = httptest.NewRequest(method, r.target, strings.NewReader(r.form.Encode()))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	} else {
		req = httptest.NewRequest(method, r.target, nil)
	}
	if r.cookie != nil {
		req.AddCookie(r.cookie)
	}
	if r.referer != "" {
		req.Header.Set("Referer", r.referer)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == "session_id" {
			return ck
		}
	}
	t.Fatal("no session cookie")
	return nil
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestSessionCookie(t *testing.T) {
	e := newMarketEcho(t)

	rec := do(e, request{target: "/api/limits"})
	require.Equal(t, http.StatusOK, rec.Code)
	ck := sessionCookie(t, rec)
	assert.True(t, auth.ValidID(ck.Value))
	assert.True(t, ck.HttpOnly)

	rec = do(e, request{target: "/api/limits", cookie: ck})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Result().Cookies())

	forged := &http.Cookie{Name: "session_id", Value: "not-a-uuid"}
	rec = do(e, request{target: "/api/limits", cookie: forged})
	assert.NotEqual(t, forged.Value, sessionCookie(t, rec).Value)
}

func TestChartEndpoint(t *testing.T) {
	e := newMarketEcho(t)

	rec := do(e, request{target: "/api/stock/chart?date=2024-05-01"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing ticker, date, or timeframe", decode(t, rec)["error"])
	ck := sessionCookie(t, rec)

	target := "/api/stock/chart?ticker=QQQ&date=2024-05-01&timeframe=5&restrict_hours=true&main_action=load_chart"
	for i := 0; i < 10; i++ {
		rec = do(e, request{target: target, cookie: ck})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	chart := decode(t, rec)["chart_data"].(map[string]interface{})
	assert.Equal(t, 2.0, chart["count"])
	assert.Equal(t, "QQQ", chart["ticker"])

	rec = do(e, request{target: target, cookie: ck})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["limit_reached"])
	assert.Contains(t, body["error"], "10 free action buttons")

	rec = do(e, request{target: "/api/limits", cookie: ck})
	limits := decode(t, rec)["limits"].([]interface{})
	require.Len(t, limits, 4)
	assert.Equal(t, 0.0, limits[0].(map[string]interface{})["remaining"])
}

func TestSampleModeFromReferer(t *testing.T) {
	e := newMarketEcho(t)

	rec := do(e, request{target: "/api/tickers"})
	assert.Equal(t, []interface{}{"AAPL", "NVDA", "QQQ"}, decode(t, rec)["tickers"])

	rec = do(e, request{target: "/api/tickers", referer: "https://example.com/sample"})
	assert.Equal(t, []interface{}{"QQQ", "NVDA"}, decode(t, rec)["tickers"])

	rec = do(e, request{target: "/api/tickers?sample_mode=1"})
	assert.Equal(t, []interface{}{"QQQ", "NVDA"}, decode(t, rec)["tickers"])

	rec = do(e, request{target: "/api/sample/gap_bins"})
	assert.Len(t, decode(t, rec)["gap_bins"], 5)
}

func TestInsightEndpoints(t *testing.T) {
	e := newMarketEcho(t)

	rec := do(e, request{target: "/api/gaps?gap_size=0.5-1%25&day=Monday&gap_direction=up"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "No gaps found for the selected criteria", body["message"])
	assert.Empty(t, body["dates"])

	rec = do(e, request{target: "/api/years"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Events data file not found. Please contact support.", decode(t, rec)["error"])

	rec = do(e, request{target: "/api/news_event_insights?event_type=CPI"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Event analysis data file is empty", decode(t, rec)["error"])
}

func TestQuoteData(t *testing.T) {
	cal := quote.NewCalendar(util.MarketLocation())

	ok := quote.NewCache(quoteStub{}, cal, "QQQ")
	e := newEcho(NewQuoteHandler(nil, ok, nil))
	rec := do(e, request{target: "/api/qqq_data"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "101.00", body["data"].(map[string]interface{})["Open"])

	broken := quote.NewCache(quoteStub{err: errors.New("timeout")}, cal, "QQQ")
	e = newEcho(NewQuoteHandler(nil, broken, nil))
	rec = do(e, request{target: "/api/qqq_data"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Unable to fetch QQQ data", body["error"])
}

func TestAuthFlow(t *testing.T) {
	users, err := repository.NewSQLiteUserStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, users.Init(context.Background()))
	t.Cleanup(func() { _ = users.Close() })
	mc := cache.NewMemoryCache(cache.WithMemoryCleanup(0))
	t.Cleanup(func() { _ = mc.Close() })
	svc := auth.NewService(users, auth.NewSessions(mc, time.Hour), auth.WithBcryptCost(bcrypt.MinCost))
	e := newEcho(NewAuthHandler(nil, svc))

	rec := do(e, request{target: "/api/me"})
	ck := sessionCookie(t, rec)
	assert.Equal(t, false, decode(t, rec)["authenticated"])

	signup := url.Values{"username": {"ann"}, "email": {"ann@example.com"}, "password": {"hunter22"}}
	bad := url.Values{"username": {"ann"}, "email": {"ann@example"}, "password": {"hunter22"}}
	rec = do(e, request{method: http.MethodPost, target: "/signup", form: bad, cookie: ck})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid email format.", decode(t, rec)["error"])

	rec = do(e, request{method: http.MethodPost, target: "/signup", form: signup, cookie: ck})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "ann", decode(t, rec)["username"])

	rec = do(e, request{method: http.MethodPost, target: "/signup", form: signup, cookie: ck})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Email already registered.", decode(t, rec)["error"])

	rec = do(e, request{target: "/api/me", cookie: ck})
	me := decode(t, rec)
	assert.Equal(t, true, me["authenticated"])
	assert.Equal(t, "ann@example.com", me["email"])

	rec = do(e, request{method: http.MethodPost, target: "/logout", cookie: ck})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(e, request{target: "/api/me", cookie: ck})
	assert.Equal(t, false, decode(t, rec)["authenticated"])

	wrong := url.Values{"email": {"ann@example.com"}, "password": {"hunter23"}}
	rec = do(e, request{method: http.MethodPost, target: "/login", form: wrong, cookie: ck})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid email or password.", decode(t, rec)["error"])

	rec = do(e, request{method: http.MethodPost, target: "/login", form: url.Values{"email": {"ann@example.com"}}, cookie: ck})
	assert.Equal(t, "Email and password are required.", decode(t, rec)["error"])

	right := url.Values{"email": {"ann@example.com"}, "password": {"hunter22"}}
	rec = do(e, request{method: http.MethodPost, target: "/login", form: right, cookie: ck})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["authenticated"])
}
