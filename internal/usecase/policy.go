package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/doby176/light/internal/domain/models"
	domrepo "github.com/doby176/light/internal/domain/repository"
	domsvc "github.com/doby176/light/internal/domain/service"
	httpx "github.com/doby176/light/pkg/http"
	"github.com/doby176/light/pkg/logger"
)

// Dashboard buttons that spend an action.
const (
	ActionLoadChart         = "load_chart"
	ActionFindGapDates      = "find_gap_dates"
	ActionGetInsights       = "get_insights"
	ActionFindEventDates    = "find_event_dates"
	ActionFindEarningsDates = "find_earnings_dates"
)

const (
	msgMainLimit        = "Action limit reached: You've used your 10 free action buttons. Please wait 12 hours or upgrade your plan."
	msgSampleLimit      = "Sample limit reached: You've used your 3 free action buttons. Sign up FREE for unlimited access!"
	msgGapInsightsLimit = "Gap Insights limit reached: You've used your 2 free Gap Insights. Please wait 12 hours or upgrade your plan."
	msgSampleCallsLimit = "Sample limit reached: You've used your 3 free API calls. Sign up FREE for 10 calls per 12 hours and full access!"
	msgNewsLimit        = "Action limit exceeded: You have reached the limit of 10 main actions per 12 hours. Please wait 12 hours or upgrade your plan."
)

// Caller identifies who is asking. Sample is set for visitors of the
// public sample page.
type Caller struct {
	SessionID string
	Sample    bool
}

// IsSampleRequest reports whether a request comes from the sample page:
// its Referer mentions /sample or it sets sample_mode.
func IsSampleRequest(referer string, sampleMode bool) bool {
	return sampleMode || strings.Contains(referer, "/sample")
}

// Limiters are the per-session action budgets.
type Limiters struct {
	Main          domsvc.ActionLimiter
	GapInsights   domsvc.ActionLimiter
	SampleActions domsvc.ActionLimiter
	SampleCalls   domsvc.ActionLimiter
}

// ActionPolicy decides which budget a request spends and reports every
// counted action to the audit stream.
type ActionPolicy struct {
	limits    Limiters
	publisher domrepo.ActionPublisher
	log       *logger.Logger
	now       func() time.Time
}

func NewActionPolicy(limits Limiters, publisher domrepo.ActionPublisher, l *logger.Logger) *ActionPolicy {
	if l == nil {
		l = logger.Nop()
	}
	return &ActionPolicy{limits: limits, publisher: publisher, log: l, now: time.Now}
}

// CountAction spends one action when the request names action: the sample
// budget on the sample page, the main budget elsewhere. Requests that do not
// name the action are free.
func (p *ActionPolicy) CountAction(ctx context.Context, c Caller, params models.ActionParams, action, endpoint string) error {
	if c.Sample {
		if params.SampleAction != action {
			return nil
		}
		return p.spend(ctx, p.limits.SampleActions, c, action, endpoint, msgSampleLimit)
	}
	if params.MainAction != action {
		return nil
	}
	return p.spend(ctx, p.limits.Main, c, action, endpoint, msgMainLimit)
}

// CountMainOnly is CountAction for buttons that only exist on the main
// dashboard.
func (p *ActionPolicy) CountMainOnly(ctx context.Context, c Caller, params models.ActionParams, action, endpoint string) error {
	if c.Sample || params.MainAction != action {
		return nil
	}
	return p.spend(ctx, p.limits.Main, c, action, endpoint, msgMainLimit)
}

// CountGapInsights spends the separate gap insights budget; on the sample
// page every call spends a sample call.
func (p *ActionPolicy) CountGapInsights(ctx context.Context, c Caller, params models.ActionParams, endpoint string) error {
	if c.Sample {
		return p.spend(ctx, p.limits.SampleCalls, c, ActionGetInsights, endpoint, msgSampleCallsLimit)
	}
	if params.MainAction != ActionGetInsights {
		return nil
	}
	return p.spend(ctx, p.limits.GapInsights, c, ActionGetInsights, endpoint, msgGapInsightsLimit)
}

// CountNewsInsights spends a main action on every call outside sample mode.
func (p *ActionPolicy) CountNewsInsights(ctx context.Context, c Caller, endpoint string) error {
	if c.Sample {
		return nil
	}
	return p.spend(ctx, p.limits.Main, c, ActionGetInsights, endpoint, msgNewsLimit)
}

// Status lists what is left of every budget for the caller.
func (p *ActionPolicy) Status(ctx context.Context, c Caller) ([]models.LimitStatus, error) {
	var out []models.LimitStatus
	for _, l := range []domsvc.ActionLimiter{p.limits.Main, p.limits.GapInsights, p.limits.SampleActions, p.limits.SampleCalls} {
		if l == nil {
			continue
		}
		st, err := l.Status(ctx, c.SessionID)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

func (p *ActionPolicy) spend(ctx context.Context, l domsvc.ActionLimiter, c Caller, action, endpoint, rejectMsg string) error {
	if l == nil {
		return nil
	}
	d, err := l.Allow(ctx, c.SessionID)
	if err != nil {
		return httpx.InternalError("Server error").WithError(err)
	}
	p.publish(ctx, models.ActionEvent{
		SessionID: c.SessionID,
		Counter:   l.Name(),
		Action:    action,
		Endpoint:  endpoint,
		Allowed:   d.Allowed,
		FailOpen:  d.FailOpen,
		Count:     d.Count,
		Limit:     d.Limit,
		Sample:    c.Sample,
		Timestamp: p.now().UTC(),
	})
	if !d.Allowed {
		p.log.Info("action limit reached",
			logger.String("counter", l.Name()),
			logger.String("session", c.SessionID),
			logger.String("endpoint", endpoint),
		)
		return httpx.TooManyRequestsError(rejectMsg)
	}
	return nil
}

func (p *ActionPolicy) publish(ctx context.Context, ev models.ActionEvent) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.PublishAction(ctx, ev); err != nil {
		p.log.Warn("action event not published", logger.String("counter", ev.Counter), logger.Error(err))
	}
}
