package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bnema/xserver-renew/internal/domain"
	"github.com/bnema/xserver-renew/internal/ports"
	"github.com/rs/zerolog"
)

// readTimeout bounds reads of elements already known to exist.
const readTimeout = 2 * time.Second

type WorkflowState string

const (
	StateSearchingEntry WorkflowState = "SEARCHING_ENTRY"
	StateEntryClicked   WorkflowState = "ENTRY_CLICKED"
	StateConfirmLoop    WorkflowState = "CONFIRM_LOOP"
	StateResultCheck    WorkflowState = "RESULT_CHECK"
	StateSuccess        WorkflowState = "SUCCESS"
	StateFailure        WorkflowState = "FAILURE"
)

func (s WorkflowState) Terminal() bool {
	return s == StateSuccess || s == StateFailure
}

type WorkflowResult struct {
	State   WorkflowState
	Success bool
	Message string
	Clicks  int
	URL     string
}

// Workflow drives the renewal pages of an authenticated session.
type Workflow struct {
	page      ports.Page
	settings  Settings
	clock     ports.Clock
	isSuccess SuccessPredicate
	logger    zerolog.Logger
}

func NewWorkflow(page ports.Page, settings Settings, clock ports.Clock, logger zerolog.Logger) *Workflow {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &Workflow{
		page:      page,
		settings:  settings,
		clock:     clock,
		isSuccess: settings.successPredicate(),
		logger:    logger,
	}
}

func (w *Workflow) Run(ctx context.Context) WorkflowResult {
	result := WorkflowResult{}
	state := StateSearchingEntry

	for !state.Terminal() {
		w.logger.Debug().Str("state", string(state)).Int("clicks", result.Clicks).Msg("renewal step")

		switch state {
		case StateSearchingEntry:
			state = w.searchEntry(ctx, &result)
		case StateEntryClicked:
			state = w.settleEntry(ctx, &result)
		case StateConfirmLoop:
			state = w.confirmLoop(ctx, &result)
		case StateResultCheck:
			state = w.checkResult(ctx, &result)
		default:
			result.Message = fmt.Sprintf("unknown workflow state %q", state)
			state = StateFailure
		}
	}

	result.State = state
	result.Success = state == StateSuccess
	if result.URL == "" {
		result.URL, _ = w.page.URL(ctx)
	}

	return result
}

func (w *Workflow) searchEntry(ctx context.Context, result *WorkflowResult) WorkflowState {
	locator, err := w.clickFirst(ctx, w.settings.Site.EntryLocators)
	if err != nil {
		result.Message = w.failureMessage("renewal entry", err)
		return StateFailure
	}

	w.logger.Info().Str("locator", locator.String()).Msg("renewal entry clicked")
	return StateEntryClicked
}

func (w *Workflow) settleEntry(ctx context.Context, result *WorkflowResult) WorkflowState {
	if err := w.page.WaitStable(ctx, w.settings.Timing.EntrySettle); err != nil {
		result.Message = fmt.Sprintf("waiting for renewal page: %v", err)
		return StateFailure
	}

	return StateConfirmLoop
}

func (w *Workflow) confirmLoop(ctx context.Context, result *WorkflowResult) WorkflowState {
	for iteration := 1; iteration <= w.settings.Workflow.MaxConfirmIterations; iteration++ {
		locator, err := w.clickFirst(ctx, w.settings.Site.ConfirmLocators)
		if err != nil {
			if result.Clicks > 0 && errors.Is(err, domain.ErrElementNotFound) {
				w.logger.Info().Int("clicks", result.Clicks).Msg("no further confirm control, checking result")
				return StateResultCheck
			}
			result.Message = w.failureMessage("confirm control", err)
			return StateFailure
		}

		result.Clicks++
		w.logger.Info().Int("iteration", iteration).Str("locator", locator.String()).Msg("confirm control clicked")

		if err := w.page.WaitStable(ctx, w.settings.Timing.StepSettle); err != nil {
			result.Message = fmt.Sprintf("waiting after confirm click %d: %v", result.Clicks, err)
			return StateFailure
		}

		if w.successVisible(ctx) {
			return StateResultCheck
		}
	}

	return StateResultCheck
}

func (w *Workflow) checkResult(ctx context.Context, result *WorkflowResult) WorkflowState {
	url, _ := w.page.URL(ctx)
	content, _ := w.page.Content(ctx)
	result.URL = url

	if w.isSuccess(url, content) {
		result.Message = fmt.Sprintf("renewal completed (clicks=%d)", result.Clicks)
		return StateSuccess
	}

	if text := w.providerError(ctx); text != "" {
		result.Message = "provider error: " + text
		return StateFailure
	}

	result.Message = fmt.Sprintf("no definitive result, manual check required (clicks=%d, url=%s)", result.Clicks, url)
	return StateFailure
}

// clickFirst force-clicks the first locator that resolves. A stale node
// restarts the lookup, up to StaleRetries times.
func (w *Workflow) clickFirst(ctx context.Context, locators []domain.Locator) (domain.Locator, error) {
	for attempt := 0; ; attempt++ {
		locator, err := w.tryLocators(ctx, locators)
		if err == nil || !errors.Is(err, domain.ErrStaleReference) {
			return locator, err
		}
		if attempt >= w.settings.Workflow.StaleRetries {
			return locator, fmt.Errorf("%w (gave up after %d retries)", err, attempt)
		}

		w.logger.Warn().Err(err).Int("retry", attempt+1).Msg("element went stale, retrying")
		if err := w.clock.Sleep(ctx, w.settings.Timing.StaleRetryPause); err != nil {
			return locator, err
		}
	}
}

func (w *Workflow) tryLocators(ctx context.Context, locators []domain.Locator) (domain.Locator, error) {
	for _, locator := range locators {
		err := w.page.ForceClick(ctx, locator, w.settings.Timing.LocatorTimeout)
		switch {
		case err == nil:
			return locator, nil
		case errors.Is(err, domain.ErrStaleReference):
			return locator, err
		case ctx.Err() != nil:
			return locator, ctx.Err()
		case !errors.Is(err, domain.ErrElementNotFound):
			w.logger.Debug().Err(err).Str("locator", locator.String()).Msg("locator failed")
		}
	}

	return domain.Locator{}, fmt.Errorf("%w: tried %d locators", domain.ErrElementNotFound, len(locators))
}

func (w *Workflow) successVisible(ctx context.Context) bool {
	url, err := w.page.URL(ctx)
	if err != nil {
		return false
	}
	content, _ := w.page.Content(ctx)

	return w.isSuccess(url, content)
}

func (w *Workflow) providerError(ctx context.Context) string {
	locator := w.settings.Site.ErrorLocator
	if locator.Value == "" {
		return ""
	}

	exists, err := w.page.Exists(ctx, locator)
	if err != nil || !exists {
		return ""
	}

	text, err := w.page.Text(ctx, locator, readTimeout)
	if err != nil {
		return ""
	}

	return truncateRunes(text, w.settings.Workflow.ErrorTextLimit)
}

func (w *Workflow) failureMessage(what string, err error) string {
	if errors.Is(err, domain.ErrElementNotFound) {
		return fmt.Sprintf("%v: %s: %v", domain.ErrWorkflowTimeout, what, err)
	}

	return fmt.Sprintf("%s: %v", what, err)
}
