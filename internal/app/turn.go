package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrWong99/vaani/internal/dispatch"
	"github.com/MrWong99/vaani/internal/intent"
	"github.com/MrWong99/vaani/internal/listen"
	"github.com/MrWong99/vaani/internal/observe"
	"github.com/MrWong99/vaani/internal/turnlog"
	"github.com/MrWong99/vaani/pkg/provider/llm"
)

// systemPrompt frames every generative fallback answer.
const systemPrompt = "आप एक हिंदी वॉयस असिस्टेंट हैं।\nसंक्षेप में उत्तर दें।"

// fallbackTimeout bounds one generative fallback call.
const fallbackTimeout = 20 * time.Second

// Turn results recorded by [observe.Metrics.RecordTurn].
const (
	turnResolved   = "resolved"
	turnUnresolved = "unresolved"
	turnTimedOut   = "timed_out"
	turnError      = "error"
)

// Turn is the outcome of one wake → capture → resolve cycle.
type Turn struct {
	// Wake is the detected wake word.
	Wake listen.WakeEvent

	// Utterance is the captured command. Empty when Outcome is
	// [listen.OutcomeTimedOut].
	Utterance listen.Utterance

	// Outcome is how the capture ended.
	Outcome listen.Outcome

	// Match is the resolver's candidate; Resolved reports whether it passed
	// the acceptance threshold.
	Match    intent.Match
	Resolved bool
}

// ResolveTurn waits for the wake word, captures one command and resolves
// it. A capture that timed out with nothing recognised is unresolved, not
// an error. opts apply to the capture only, e.g. [listen.Within] for a
// per-call budget.
func (a *App) ResolveTurn(ctx context.Context, opts ...listen.CaptureOption) (intent.Match, bool, error) {
	t, err := a.NextTurn(ctx, opts...)
	if err != nil {
		return intent.Match{}, false, err
	}
	return t.Match, t.Resolved, nil
}

// NextTurn runs the listening half of a turn: wake, acknowledgement, capture
// and intent resolution. Tunables queued by [App.ApplyConfig] are installed
// first. Without a [listen.Within] option the capture uses the configured
// command timeout.
func (a *App) NextTurn(ctx context.Context, opts ...listen.CaptureOption) (Turn, error) {
	a.applyPending()

	var t Turn
	ev, err := a.listener.WaitForWake(ctx)
	if err != nil {
		return t, err
	}
	t.Wake = ev
	a.metrics.RecordWake(ctx, ev.Word)

	ctx, span := observe.StartSpan(ctx, "app.turn",
		trace.WithAttributes(attribute.String("wake_word", ev.Word)))
	defer span.End()
	log := observe.Logger(ctx)
	log.Info("wake word heard", "word", ev.Word, "text", ev.Text)

	a.speak(ctx, dispatch.ReplyListening)

	start := time.Now()
	u, outcome, err := a.listener.CaptureCommand(ctx, opts...)
	t.Outcome = outcome
	if err != nil {
		observe.FailSpan(span, err)
		return t, err
	}
	a.metrics.RecordCapture(ctx, outcome.String(), time.Since(start))
	if outcome == listen.OutcomeTimedOut {
		log.Info("no command heard")
		return t, nil
	}
	t.Utterance = u
	log.Info("command captured", "text", u.Text, "outcome", outcome, "tokens", len(u.Tokens))

	start = time.Now()
	t.Match, t.Resolved = a.resolver.Resolve(ctx, u.Text)
	a.metrics.RecordResolution(ctx, t.Match.Source.String(), t.Resolved, time.Since(start))
	span.SetAttributes(
		attribute.String("intent", t.Match.Tag),
		attribute.Float64("confidence", t.Match.Confidence),
		attribute.Bool("resolved", t.Resolved),
	)
	log.Info("intent resolved",
		"tag", t.Match.Tag,
		"confidence", t.Match.Confidence,
		"source", t.Match.Source,
		"resolved", t.Resolved,
	)
	return t, nil
}

// Respond answers a captured turn: it dispatches a resolved intent, asks the
// generative fallback when needed and speaks the reply. It reports whether
// the turn loop should stop. The turn is appended to the turn log when one
// is configured.
func (a *App) Respond(ctx context.Context, t Turn) (stop bool) {
	reply, stop := a.respond(ctx, t)
	a.logTurn(ctx, t, reply)
	return stop
}

func (a *App) respond(ctx context.Context, t Turn) (reply string, stop bool) {
	if t.Outcome == listen.OutcomeTimedOut || t.Utterance.Text == "" {
		return "", false
	}
	text := t.Utterance.Text

	resp := dispatch.Response{Fallback: true}
	if t.Resolved {
		var err error
		resp, err = a.dispatcher.Dispatch(ctx, dispatch.Tag(t.Match.Tag), text)
		a.metrics.RecordDispatch(ctx, t.Match.Tag)
		if err != nil {
			observe.Logger(ctx).Error("intent handler failed", "tag", t.Match.Tag, "err", err)
			a.speak(ctx, dispatch.ReplyError)
			return dispatch.ReplyError, false
		}
	}

	reply = resp.Text
	if resp.Fallback {
		if answer := a.generate(ctx, text); answer != "" {
			reply = answer
		} else if reply == "" {
			reply = dispatch.ReplyNotUnderstood
		}
	}
	a.speak(ctx, reply)
	return reply, resp.Stop
}

func (a *App) logTurn(ctx context.Context, t Turn, reply string) {
	if a.turns == nil {
		return
	}
	err := a.turns.Append(turnlog.Record{
		WakeWord:   t.Wake.Word,
		Text:       t.Utterance.Text,
		Outcome:    t.Outcome.String(),
		Recovered:  t.Utterance.Recovered,
		Tag:        t.Match.Tag,
		Confidence: t.Match.Confidence,
		Source:     t.Match.Source.String(),
		Resolved:   t.Resolved,
		Reply:      reply,
	})
	if err != nil {
		observe.Logger(ctx).Warn("failed to append turn log", "err", err)
	}
}

// generate asks the LLM for a short answer. It returns "" when no LLM is
// configured or the call fails.
func (a *App) generate(ctx context.Context, text string) string {
	if a.providers.LLM == nil {
		return ""
	}
	ctx, cancel := context.WithTimeout(ctx, fallbackTimeout)
	defer cancel()
	ctx, span := observe.StartSpan(ctx, "app.fallback")
	defer span.End()

	start := time.Now()
	resp, err := a.providers.LLM.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: systemPrompt,
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: text}},
		MaxTokens:    a.cfg.Assistant.MaxTokens,
		Temperature:  a.cfg.Assistant.Temperature,
	})
	if err != nil {
		a.metrics.RecordFallback(ctx, "error", time.Since(start))
		observe.FailSpan(span, err)
		observe.Logger(ctx).Warn("generative fallback failed", "err", err)
		return ""
	}

	var answer string
	if resp != nil {
		answer = strings.TrimSpace(resp.Content)
	}
	if answer == "" {
		a.metrics.RecordFallback(ctx, "empty", time.Since(start))
		return ""
	}
	a.metrics.RecordFallback(ctx, "ok", time.Since(start))
	return answer
}

// speak synthesises text and plays it. Without a synthesizer or sink the
// reply is only logged. Failures are logged; the turn goes on.
func (a *App) speak(ctx context.Context, text string) {
	log := observe.Logger(ctx)
	log.Info("reply", "text", text)
	if a.providers.TTS == nil || a.providers.Sink == nil {
		return
	}

	start := time.Now()
	clip, err := a.providers.TTS.Synthesize(ctx, text)
	a.metrics.TTSDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Warn("speech synthesis failed", "err", err)
		}
		return
	}
	if err := a.providers.Sink.Play(ctx, clip); err != nil && !errors.Is(err, context.Canceled) {
		log.Warn("playback failed", "err", err)
	}
}

// turnResult classifies a finished turn for metrics.
func turnResult(t Turn) string {
	switch {
	case t.Outcome == listen.OutcomeTimedOut:
		return turnTimedOut
	case t.Resolved:
		return turnResolved
	default:
		return turnUnresolved
	}
}
