package requirements

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/ziadkadry99/d365-plugin-assistant/internal/advisory"
	"github.com/ziadkadry99/d365-plugin-assistant/internal/audit"
	"github.com/ziadkadry99/d365-plugin-assistant/internal/llm"
)

var (
	// ErrSessionNotFound is returned for an unknown session id.
	ErrSessionNotFound = errors.New("session not found")
	// ErrNoHistory is returned when regenerating before any code was generated.
	ErrNoHistory = errors.New("no previous plugin to regenerate")
)

// DefaultConfirmKeywords are the replies accepted as confirming the summary.
var DefaultConfirmKeywords = []string{
	"yes", "y", "confirm", "ok", "correct", "proceed", "go ahead", "generate", "continue",
}

// Options configures an Engine.
type Options struct {
	// CodeOracle generates plug-in code. Defaults to the dialogue oracle.
	CodeOracle llm.Oracle
	// Stage is the pipeline stage used for image advice. Defaults to PostOperation.
	Stage           advisory.Stage
	ConfirmKeywords []string
	// Audit receives session events when set.
	Audit  *audit.Store
	Logger *zap.Logger
}

// Engine runs the requirements dialogue. Turns on the same session are
// serialized; different sessions proceed in parallel.
type Engine struct {
	store   *Store
	catalog Catalog
	oracle  llm.Oracle
	coder   llm.Oracle
	stage   advisory.Stage
	confirm map[string]bool
	audit   *audit.Store
	logger  *zap.Logger
	locks   keyedMutex
}

// NewEngine creates a requirements engine.
func NewEngine(store *Store, cat Catalog, oracle llm.Oracle, opts Options) *Engine {
	e := &Engine{
		store:   store,
		catalog: cat,
		oracle:  oracle,
		coder:   opts.CodeOracle,
		stage:   opts.Stage,
		confirm: make(map[string]bool),
		audit:   opts.Audit,
		logger:  opts.Logger,
	}
	if e.coder == nil {
		e.coder = oracle
	}
	if e.stage == "" {
		e.stage = advisory.PostOperation
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	keywords := opts.ConfirmKeywords
	if len(keywords) == 0 {
		keywords = DefaultConfirmKeywords
	}
	for _, k := range keywords {
		e.confirm[strings.ToLower(strings.TrimSpace(k))] = true
	}
	return e
}

// Store returns the engine's session store.
func (e *Engine) Store() *Store { return e.store }

// Start creates a session and asks the opening question.
func (e *Engine) Start(ctx context.Context, userID string) (*TurnResult, error) {
	opening, err := e.opening(ctx)
	if err != nil {
		return nil, err
	}
	sess, err := e.store.CreateSession(ctx, userID, opening)
	if err != nil {
		return nil, err
	}
	e.logger.Info("session started", zap.String("session", sess.ID), zap.String("user", sess.UserID))
	e.record(ctx, audit.Entry{
		ActorID:   sess.UserID,
		Action:    audit.ActionSessionStarted,
		SessionID: sess.ID,
		Summary:   "Session started",
	})
	return e.result(sess.ID, ReplyQuestion, opening, sess.State, sess.Record), nil
}

// Reset wipes a session back to its opening question.
func (e *Engine) Reset(ctx context.Context, sessionID string) (*TurnResult, error) {
	unlock := e.locks.lock(sessionID)
	defer unlock()

	sess, err := e.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	opening, err := e.opening(ctx)
	if err != nil {
		return nil, err
	}
	if err := e.store.ResetSession(ctx, sessionID, opening); err != nil {
		return nil, err
	}
	e.logger.Info("session reset", zap.String("session", sessionID))
	e.record(ctx, audit.Entry{
		ActorID:       sess.UserID,
		Action:        audit.ActionSessionReset,
		SessionID:     sessionID,
		Entity:        sess.Record.Entity,
		Summary:       "Session reset",
		PreviousValue: sess.Record.Logic,
	})
	return e.result(sessionID, ReplyQuestion, opening, StateCollecting, Record{}), nil
}

// Session returns a session by id.
func (e *Engine) Session(ctx context.Context, sessionID string) (*Session, error) {
	sess, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// HandleTurn processes one user action. Nothing is written unless every
// oracle call of the turn succeeds, so a failed turn leaves the session as it
// was.
func (e *Engine) HandleTurn(ctx context.Context, sessionID string, in TurnInput) (*TurnResult, error) {
	unlock := e.locks.lock(sessionID)
	defer unlock()

	sess, err := e.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	input := strings.TrimSpace(in.Content)

	if sess.Confirmed() {
		return e.amend(ctx, sess, input)
	}

	transcript := append([]llm.Message(nil), sess.Transcript...)
	var appended []llm.Message
	if input != "" {
		msg := llm.Message{Role: llm.RoleUser, Content: input}
		transcript = append(transcript, msg)
		appended = append(appended, msg)
	}

	rec, err := Extract(ctx, transcript, e.catalog, e.oracle)
	if err != nil {
		return nil, fmt.Errorf("extracting requirements: %w", err)
	}
	missing := rec.Missing()

	if len(missing) == 0 && (in.Confirm || e.isConfirmation(input)) {
		code, err := e.generate(ctx, codePrompt(rec, advisory.Advice(rec.Trigger, e.stage)))
		if err != nil {
			return nil, err
		}
		codeRec := e.codeRecord(rec, code)
		err = e.store.SaveTurn(ctx, TurnUpdate{
			SessionID: sess.ID,
			State:     StateConfirmed,
			Record:    rec,
			Append:    appended,
			Code:      codeRec,
		})
		if err != nil {
			return nil, err
		}
		e.record(ctx, audit.Entry{
			ActorID:   sess.UserID,
			Action:    audit.ActionRequirementsConfirmed,
			SessionID: sess.ID,
			Entity:    rec.Entity,
			Summary:   fmt.Sprintf("Confirmed %s plug-in on %s", rec.Trigger, rec.Entity),
			Detail:    codeRec.PluginName,
			NewValue:  rec.Logic,
		})
		e.logger.Info("requirements confirmed",
			zap.String("session", sess.ID),
			zap.String("entity", rec.Entity),
			zap.String("trigger", rec.Trigger),
		)
		return e.result(sess.ID, ReplyCode, code, StateConfirmed, rec), nil
	}

	// A pending fields value is not missing: the summary is shown and the
	// user may confirm or keep describing.
	if len(missing) == 0 {
		if err := e.store.SaveTurn(ctx, TurnUpdate{
			SessionID: sess.ID, State: StateReadyToConfirm, Record: rec, Append: appended,
		}); err != nil {
			return nil, err
		}
		return e.result(sess.ID, ReplySummary, summary(rec), StateReadyToConfirm, rec), nil
	}

	question, err := e.oracle.Complete(ctx, dialogueSystemPrompt, transcript)
	if err != nil {
		return nil, fmt.Errorf("asking follow-up question: %w", err)
	}
	appended = append(appended, llm.Message{Role: llm.RoleAssistant, Content: question})
	if err := e.store.SaveTurn(ctx, TurnUpdate{
		SessionID: sess.ID, State: StateCollecting, Record: rec, Append: appended,
	}); err != nil {
		return nil, err
	}
	e.logger.Debug("follow-up asked", zap.String("session", sess.ID), zap.Strings("missing", missing))
	return e.result(sess.ID, ReplyQuestion, question, StateCollecting, rec), nil
}

// amend treats input on a confirmed session as a change request.
func (e *Engine) amend(ctx context.Context, sess *Session, input string) (*TurnResult, error) {
	if input == "" {
		return e.result(sess.ID, ReplyNotice, noChangeRequest, sess.State, sess.Record), nil
	}

	rec := sess.Record
	rec.Logic += "\n" + input
	code, err := e.generate(ctx, codePrompt(rec, ""))
	if err != nil {
		return nil, err
	}
	codeRec := e.codeRecord(rec, code)
	if err := e.store.SaveTurn(ctx, TurnUpdate{
		SessionID: sess.ID, State: StateConfirmed, Record: rec, Code: codeRec,
	}); err != nil {
		return nil, err
	}
	e.logger.Info("plugin amended", zap.String("session", sess.ID))
	e.record(ctx, audit.Entry{
		ActorID:       sess.UserID,
		Action:        audit.ActionPluginAmended,
		SessionID:     sess.ID,
		Entity:        rec.Entity,
		Summary:       "Amended " + codeRec.PluginName,
		Detail:        codeRec.PluginName,
		PreviousValue: sess.Record.Logic,
		NewValue:      rec.Logic,
	})
	return e.result(sess.ID, ReplyCode, code, StateConfirmed, rec), nil
}

// Regenerate rebuilds the latest generated plug-in with replacement logic.
// The session's record is left as it is.
func (e *Engine) Regenerate(ctx context.Context, sessionID, newLogic string) (*CodeRecord, error) {
	unlock := e.locks.lock(sessionID)
	defer unlock()

	sess, err := e.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	last, err := e.store.LatestCode(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if last == nil {
		return nil, ErrNoHistory
	}

	code, err := e.generate(ctx, regeneratePrompt(*last, newLogic))
	if err != nil {
		return nil, err
	}
	added, err := e.store.AddCode(ctx, CodeRecord{
		SessionID:  sessionID,
		PluginName: last.PluginName,
		Entity:     last.Entity,
		Trigger:    last.Trigger,
		Fields:     last.Fields,
		Logic:      newLogic,
		Code:       code,
	})
	if err != nil {
		return nil, err
	}
	e.record(ctx, audit.Entry{
		ActorID:       sess.UserID,
		Action:        audit.ActionPluginRegenerated,
		SessionID:     sessionID,
		Entity:        last.Entity,
		Summary:       "Regenerated " + last.PluginName,
		Detail:        last.PluginName,
		PreviousValue: last.Logic,
		NewValue:      newLogic,
	})
	return added, nil
}

// record writes an audit entry. Failures are logged and never fail the turn.
func (e *Engine) record(ctx context.Context, entry audit.Entry) {
	if e.audit == nil {
		return
	}
	if err := e.audit.Log(ctx, entry); err != nil {
		e.logger.Warn("audit log failed", zap.String("action", string(entry.Action)), zap.Error(err))
	}
}

// CodeHistory lists the plug-ins generated in a session.
func (e *Engine) CodeHistory(ctx context.Context, sessionID string) ([]CodeRecord, error) {
	if _, err := e.Session(ctx, sessionID); err != nil {
		return nil, err
	}
	return e.store.CodeHistory(ctx, sessionID)
}

func (e *Engine) opening(ctx context.Context) (string, error) {
	reply, err := e.oracle.Complete(ctx, dialogueSystemPrompt, []llm.Message{{Role: llm.RoleUser, Content: openingCue}})
	if err != nil {
		return "", fmt.Errorf("asking opening question: %w", err)
	}
	return reply, nil
}

func (e *Engine) generate(ctx context.Context, prompt string) (string, error) {
	code, err := e.coder.Complete(ctx, codeSystemPrompt, []llm.Message{{Role: llm.RoleUser, Content: prompt}})
	if err != nil {
		return "", fmt.Errorf("generating plugin code: %w", err)
	}
	return code, nil
}

func (e *Engine) isConfirmation(input string) bool {
	return e.confirm[strings.ToLower(input)]
}

func (e *Engine) codeRecord(rec Record, code string) *CodeRecord {
	return &CodeRecord{
		PluginName: pluginName(rec),
		Entity:     rec.Entity,
		Trigger:    rec.Trigger,
		Fields:     rec.Fields,
		Logic:      rec.Logic,
		Code:       code,
	}
}

func (e *Engine) result(sessionID string, kind ReplyKind, reply string, state State, rec Record) *TurnResult {
	missing := rec.Missing()
	if missing == nil {
		missing = []string{}
	}
	return &TurnResult{
		SessionID: sessionID,
		Kind:      kind,
		Reply:     reply,
		State:     state,
		Record:    rec,
		Missing:   missing,
		Ready:     len(missing) == 0 && state != StateConfirmed,
	}
}

// keyedMutex hands out one mutex per key.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*refMutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
