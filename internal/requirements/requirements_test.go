package requirements

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/d365-plugin-assistant/internal/apperrors"
	"github.com/ziadkadry99/d365-plugin-assistant/internal/audit"
	"github.com/ziadkadry99/d365-plugin-assistant/internal/catalog"
	"github.com/ziadkadry99/d365-plugin-assistant/internal/db"
	"github.com/ziadkadry99/d365-plugin-assistant/internal/llm"
)

const (
	openingQuestion  = "What is the business logic you want to implement in Dynamics 365?"
	followUpQuestion = "Which table should the plug-in run on?"
	generatedCode    = "```csharp\npublic class AccountUpdatePlugin : IPlugin {}\n```"
	scenarioAText    = "I need to update the account email when it changes."
)

type oracleCall struct {
	system string
	turns  []llm.Message
}

// fakeOracle answers by system prompt and records every call.
type fakeOracle struct {
	mu       sync.Mutex
	calls    []oracleCall
	failWith map[string]error
	pick     string
}

func (f *fakeOracle) Complete(ctx context.Context, system string, turns []llm.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, oracleCall{system: system, turns: append([]llm.Message(nil), turns...)})
	if err := f.failWith[system]; err != nil {
		return "", err
	}
	switch system {
	case codeSystemPrompt:
		return generatedCode, nil
	case dialogueSystemPrompt:
		if len(turns) == 1 && turns[0].Content == openingCue {
			return openingQuestion, nil
		}
		return followUpQuestion, nil
	default:
		return f.pick, nil
	}
}

func (f *fakeOracle) callsFor(system string) []oracleCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []oracleCall
	for _, c := range f.calls {
		if c.system == system {
			out = append(out, c)
		}
	}
	return out
}

func setupCatalog(t *testing.T) *catalog.Store {
	t.Helper()
	store := catalog.NewStore(t.TempDir(), nil)
	require.NoError(t, store.SaveEntityMap(catalog.EntityMapFrom([]catalog.EntityInfo{
		{LogicalName: "account", DisplayName: "Account"},
	})))
	require.NoError(t, store.SaveFieldFile("account", []catalog.ColumnDescriptor{
		{LogicalName: "name", DisplayName: "Account Name"},
		{LogicalName: "emailaddress1", DisplayName: "Email"},
		{LogicalName: "telephone1", DisplayName: "Main Phone"},
	}))
	return store
}

func setupEngine(t *testing.T) (*Engine, *fakeOracle) {
	t.Helper()
	database, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	oracle := &fakeOracle{failWith: map[string]error{}}
	engine := NewEngine(NewStore(database), setupCatalog(t), oracle, Options{})
	return engine, oracle
}

func userTurns(texts ...string) []llm.Message {
	var out []llm.Message
	for _, t := range texts {
		out = append(out, llm.Message{Role: llm.RoleUser, Content: t})
	}
	return out
}

// --- Record ---

func TestRecordMissingAndReady(t *testing.T) {
	assert.Equal(t, []string{"entity", "trigger", "fields", "logic"}, Record{}.Missing())

	pending := Record{Entity: "account", Trigger: "update", Fields: PendingFields, Logic: "do things"}
	assert.Empty(t, pending.Missing())
	assert.False(t, pending.Ready())

	full := Record{Entity: "account", Trigger: "update", Fields: "emailaddress1", Logic: "do things"}
	assert.True(t, full.Ready())
}

// --- Extract ---

func TestExtractScenarioA(t *testing.T) {
	transcript := append([]llm.Message{{Role: llm.RoleAssistant, Content: openingQuestion}}, userTurns(scenarioAText)...)

	rec, err := Extract(context.Background(), transcript, setupCatalog(t), nil)
	require.NoError(t, err)
	assert.Equal(t, Record{
		Entity:  "account",
		Trigger: "update",
		Fields:  "emailaddress1",
		Logic:   scenarioAText,
	}, rec)
}

func TestExtractScenarioCLogicSkipsShortReplies(t *testing.T) {
	long := "Copy the email to notes"
	rec, err := Extract(context.Background(), userTurns(long, "yes"), setupCatalog(t), nil)
	require.NoError(t, err)
	assert.Equal(t, long, rec.Logic)
}

func TestExtractLogicNeedsMoreThanFourWords(t *testing.T) {
	rec, err := Extract(context.Background(), userTurns("update the account email"), setupCatalog(t), nil)
	require.NoError(t, err)
	assert.Equal(t, "", rec.Logic)
	assert.Equal(t, "account", rec.Entity)
}

func TestExtractWithoutEntityLeavesFieldsPending(t *testing.T) {
	rec, err := Extract(context.Background(), userTurns("when a contact email changes notify the owner"), setupCatalog(t), nil)
	require.NoError(t, err)
	assert.Equal(t, "", rec.Entity)
	assert.Equal(t, PendingFields, rec.Fields)
}

func TestExtractUsesWholeTranscript(t *testing.T) {
	rec, err := Extract(context.Background(), userTurns("on the account table", "on update", "the telephone1 field"), setupCatalog(t), nil)
	require.NoError(t, err)
	assert.Equal(t, "account", rec.Entity)
	assert.Equal(t, "update", rec.Trigger)
	assert.Equal(t, "telephone1", rec.Fields)
}

func TestExtractMultipleFields(t *testing.T) {
	text := userTurns("copy telephone1 into the email of the account on update")

	rec, err := Extract(context.Background(), text, setupCatalog(t), nil)
	require.NoError(t, err)
	assert.Equal(t, "emailaddress1, telephone1", rec.Fields)

	oracle := &fakeOracle{pick: " telephone1 "}
	rec, err = Extract(context.Background(), text, setupCatalog(t), oracle)
	require.NoError(t, err)
	assert.Equal(t, "telephone1", rec.Fields)
	assert.Len(t, oracle.calls, 1)
}

type brokenCatalog struct{}

func (brokenCatalog) LoadEntityMap() (*catalog.EntityMap, error) {
	return nil, errors.New("corrupt entity map")
}

func (brokenCatalog) FieldMap(string) (*catalog.FieldMap, error) { return nil, nil }

func TestExtractPropagatesCatalogErrors(t *testing.T) {
	_, err := Extract(context.Background(), userTurns("x"), brokenCatalog{}, nil)
	assert.Error(t, err)
}

// --- Engine ---

func TestStartAsksOpeningQuestion(t *testing.T) {
	engine, _ := setupEngine(t)
	ctx := context.Background()

	res, err := engine.Start(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, ReplyQuestion, res.Kind)
	assert.Equal(t, openingQuestion, res.Reply)
	assert.Equal(t, StateCollecting, res.State)

	sess, err := engine.Session(ctx, res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "anonymous", sess.UserID)
	assert.Equal(t, []llm.Message{{Role: llm.RoleAssistant, Content: openingQuestion}}, sess.Transcript)
}

func TestSummaryThenConfirmGeneratesCode(t *testing.T) {
	engine, oracle := setupEngine(t)
	ctx := context.Background()

	start, err := engine.Start(ctx, "alice")
	require.NoError(t, err)
	id := start.SessionID

	res, err := engine.HandleTurn(ctx, id, TurnInput{Content: scenarioAText})
	require.NoError(t, err)
	assert.Equal(t, ReplySummary, res.Kind)
	assert.Equal(t, StateReadyToConfirm, res.State)
	assert.True(t, res.Ready)
	assert.Contains(t, res.Reply, "- **Entity**: account")
	assert.Contains(t, res.Reply, "- **Fields Involved**: emailaddress1")

	res, err = engine.HandleTurn(ctx, id, TurnInput{Content: "  Go Ahead "})
	require.NoError(t, err)
	assert.Equal(t, ReplyCode, res.Kind)
	assert.Equal(t, generatedCode, res.Reply)
	assert.Equal(t, StateConfirmed, res.State)
	assert.Equal(t, scenarioAText, res.Record.Logic)
	assert.False(t, res.Ready)

	codeCalls := oracle.callsFor(codeSystemPrompt)
	require.Len(t, codeCalls, 1)
	prompt := codeCalls[0].turns[0].Content
	assert.True(t, strings.HasPrefix(prompt, "Generate a Dynamics 365 plug-in in C# with the following specs:\nEntity: account\nTrigger: update\n"))
	assert.Contains(t, prompt, "Post-Operation Stage:")
	assert.Contains(t, prompt, "Image Suggestion: Use Pre-Image if you need previous values. Use Post-Image for values after operation.")

	history, err := engine.CodeHistory(ctx, id)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "AccountUpdatePlugin", history[0].PluginName)
	assert.Equal(t, generatedCode, history[0].Code)
}

func TestConfirmFlagNeedsCompleteRecord(t *testing.T) {
	engine, oracle := setupEngine(t)
	ctx := context.Background()

	start, err := engine.Start(ctx, "")
	require.NoError(t, err)

	res, err := engine.HandleTurn(ctx, start.SessionID, TurnInput{Content: "hello", Confirm: true})
	require.NoError(t, err)
	assert.Equal(t, ReplyQuestion, res.Kind)
	assert.Equal(t, followUpQuestion, res.Reply)
	assert.Equal(t, StateCollecting, res.State)
	assert.ElementsMatch(t, []string{"entity", "trigger", "logic"}, res.Missing)

	// The follow-up is asked over the whole transcript.
	calls := oracle.callsFor(dialogueSystemPrompt)
	last := calls[len(calls)-1]
	assert.Equal(t, []llm.Message{
		{Role: llm.RoleAssistant, Content: openingQuestion},
		{Role: llm.RoleUser, Content: "hello"},
	}, last.turns)

	sess, err := engine.Session(ctx, start.SessionID)
	require.NoError(t, err)
	assert.Len(t, sess.Transcript, 3)
	assert.Empty(t, oracle.callsFor(codeSystemPrompt))
}

func TestConfirmFlagOnCompleteRecord(t *testing.T) {
	engine, _ := setupEngine(t)
	ctx := context.Background()

	start, err := engine.Start(ctx, "")
	require.NoError(t, err)

	res, err := engine.HandleTurn(ctx, start.SessionID, TurnInput{Content: scenarioAText, Confirm: true})
	require.NoError(t, err)
	assert.Equal(t, ReplyCode, res.Kind)
	assert.Equal(t, StateConfirmed, res.State)
}

func TestPendingFieldsShowSummaryWithoutOracle(t *testing.T) {
	engine, oracle := setupEngine(t)
	ctx := context.Background()

	start, err := engine.Start(ctx, "")
	require.NoError(t, err)
	dialogueCalls := len(oracle.callsFor(dialogueSystemPrompt))

	res, err := engine.HandleTurn(ctx, start.SessionID, TurnInput{Content: "When an account is updated send a notification"})
	require.NoError(t, err)
	assert.Equal(t, PendingFields, res.Record.Fields)
	assert.Empty(t, res.Missing)
	assert.Equal(t, ReplySummary, res.Kind)
	assert.Equal(t, StateReadyToConfirm, res.State)
	assert.True(t, res.Ready)
	assert.Contains(t, res.Reply, "- **Fields Involved**: "+PendingFields)
	assert.Len(t, oracle.callsFor(dialogueSystemPrompt), dialogueCalls)

	sess, err := engine.Session(ctx, start.SessionID)
	require.NoError(t, err)
	assert.Len(t, sess.Transcript, 2)

	res, err = engine.HandleTurn(ctx, start.SessionID, TurnInput{Content: "confirm"})
	require.NoError(t, err)
	assert.Equal(t, ReplyCode, res.Kind)
	assert.Equal(t, StateConfirmed, res.State)
}

func TestConfirmationIsMonotonic(t *testing.T) {
	engine, oracle := setupEngine(t)
	ctx := context.Background()

	start, err := engine.Start(ctx, "")
	require.NoError(t, err)
	id := start.SessionID

	_, err = engine.HandleTurn(ctx, id, TurnInput{Content: scenarioAText, Confirm: true})
	require.NoError(t, err)

	res, err := engine.HandleTurn(ctx, id, TurnInput{Content: "also clear the phone number"})
	require.NoError(t, err)
	assert.Equal(t, ReplyCode, res.Kind)
	assert.Equal(t, StateConfirmed, res.State)
	assert.Equal(t, scenarioAText+"\nalso clear the phone number", res.Record.Logic)

	lastCode := oracle.callsFor(codeSystemPrompt)
	assert.Contains(t, lastCode[len(lastCode)-1].turns[0].Content, "Logic: "+scenarioAText+"\nalso clear the phone number\n")

	res, err = engine.HandleTurn(ctx, id, TurnInput{})
	require.NoError(t, err)
	assert.Equal(t, ReplyNotice, res.Kind)
	assert.Equal(t, "Please type a change request or restart.", res.Reply)

	for _, input := range []string{"no", "restart", "delete the contact instead"} {
		res, err = engine.HandleTurn(ctx, id, TurnInput{Content: input})
		require.NoError(t, err)
		assert.Equal(t, StateConfirmed, res.State, input)
	}

	sess, err := engine.Session(ctx, id)
	require.NoError(t, err)
	assert.True(t, sess.Confirmed())
	// Amendments go to the logic, not the transcript.
	assert.Len(t, sess.Transcript, 2)

	history, err := engine.CodeHistory(ctx, id)
	require.NoError(t, err)
	assert.Len(t, history, 5)
}

func TestResetClearsConfirmation(t *testing.T) {
	engine, _ := setupEngine(t)
	ctx := context.Background()

	start, err := engine.Start(ctx, "")
	require.NoError(t, err)
	id := start.SessionID
	_, err = engine.HandleTurn(ctx, id, TurnInput{Content: scenarioAText, Confirm: true})
	require.NoError(t, err)

	res, err := engine.Reset(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StateCollecting, res.State)
	assert.Equal(t, openingQuestion, res.Reply)

	sess, err := engine.Session(ctx, id)
	require.NoError(t, err)
	assert.False(t, sess.Confirmed())
	assert.Equal(t, Record{}, sess.Record)
	assert.Len(t, sess.Transcript, 1)

	history, err := engine.CodeHistory(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestFailedFollowUpLeavesSessionUntouched(t *testing.T) {
	engine, oracle := setupEngine(t)
	ctx := context.Background()

	start, err := engine.Start(ctx, "")
	require.NoError(t, err)
	before, err := engine.Session(ctx, start.SessionID)
	require.NoError(t, err)

	oracle.failWith[dialogueSystemPrompt] = apperrors.NewUpstreamError("openai", "", 503, "overloaded")
	_, err = engine.HandleTurn(ctx, start.SessionID, TurnInput{Content: "hello there"})
	require.Error(t, err)
	assert.True(t, apperrors.IsUpstream(err))

	after, err := engine.Session(ctx, start.SessionID)
	require.NoError(t, err)
	assert.Equal(t, before.Transcript, after.Transcript)
	assert.Equal(t, before.Record, after.Record)
	assert.Equal(t, before.State, after.State)
}

func TestFailedGenerationLeavesSessionUnconfirmed(t *testing.T) {
	engine, oracle := setupEngine(t)
	ctx := context.Background()

	start, err := engine.Start(ctx, "")
	require.NoError(t, err)
	_, err = engine.HandleTurn(ctx, start.SessionID, TurnInput{Content: scenarioAText})
	require.NoError(t, err)

	oracle.failWith[codeSystemPrompt] = errors.New("timeout")
	_, err = engine.HandleTurn(ctx, start.SessionID, TurnInput{Content: "yes"})
	require.Error(t, err)

	sess, err := engine.Session(ctx, start.SessionID)
	require.NoError(t, err)
	assert.Equal(t, StateReadyToConfirm, sess.State)
	assert.Len(t, sess.Transcript, 2)

	delete(oracle.failWith, codeSystemPrompt)
	res, err := engine.HandleTurn(ctx, start.SessionID, TurnInput{Content: "yes"})
	require.NoError(t, err)
	assert.Equal(t, StateConfirmed, res.State)
}

func TestRegenerate(t *testing.T) {
	engine, oracle := setupEngine(t)
	ctx := context.Background()

	start, err := engine.Start(ctx, "")
	require.NoError(t, err)
	id := start.SessionID

	_, err = engine.Regenerate(ctx, id, "new rule")
	assert.ErrorIs(t, err, ErrNoHistory)

	_, err = engine.HandleTurn(ctx, id, TurnInput{Content: scenarioAText, Confirm: true})
	require.NoError(t, err)

	rec, err := engine.Regenerate(ctx, id, "only when the email is not empty")
	require.NoError(t, err)
	assert.Equal(t, "only when the email is not empty", rec.Logic)
	assert.Equal(t, "account", rec.Entity)

	calls := oracle.callsFor(codeSystemPrompt)
	prompt := calls[len(calls)-1].turns[0].Content
	assert.Contains(t, prompt, "Old Logic: "+scenarioAText)
	assert.Contains(t, prompt, "New Logic: only when the email is not empty")

	sess, err := engine.Session(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, scenarioAText, sess.Record.Logic)
}

func TestSessionEventsAreAudited(t *testing.T) {
	database, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	trail := audit.NewStore(database)
	oracle := &fakeOracle{failWith: map[string]error{}}
	engine := NewEngine(NewStore(database), setupCatalog(t), oracle, Options{Audit: trail})
	ctx := context.Background()

	start, err := engine.Start(ctx, "alice")
	require.NoError(t, err)
	id := start.SessionID

	_, err = engine.HandleTurn(ctx, id, TurnInput{Content: scenarioAText, Confirm: true})
	require.NoError(t, err)
	_, err = engine.HandleTurn(ctx, id, TurnInput{Content: "also clear the phone number"})
	require.NoError(t, err)
	_, err = engine.Regenerate(ctx, id, "only when the email is not empty")
	require.NoError(t, err)
	_, err = engine.Reset(ctx, id)
	require.NoError(t, err)

	entries, err := trail.Query(ctx, audit.QueryFilter{SessionID: id})
	require.NoError(t, err)
	require.Len(t, entries, 5)

	var actions []audit.Action
	for _, e := range entries {
		actions = append(actions, e.Action)
		assert.Equal(t, "alice", e.ActorID)
	}
	assert.Equal(t, []audit.Action{
		audit.ActionSessionReset,
		audit.ActionPluginRegenerated,
		audit.ActionPluginAmended,
		audit.ActionRequirementsConfirmed,
		audit.ActionSessionStarted,
	}, actions)

	confirmed := entries[3]
	assert.Equal(t, "account", confirmed.Entity)
	assert.Equal(t, "AccountUpdatePlugin", confirmed.Detail)

	amended := entries[2]
	assert.Equal(t, scenarioAText, amended.PreviousValue)
	assert.Equal(t, scenarioAText+"\nalso clear the phone number", amended.NewValue)

	regenerated := entries[1]
	assert.Equal(t, scenarioAText+"\nalso clear the phone number", regenerated.PreviousValue)
	assert.Equal(t, "only when the email is not empty", regenerated.NewValue)
}

func TestUnknownSession(t *testing.T) {
	engine, _ := setupEngine(t)
	ctx := context.Background()

	_, err := engine.HandleTurn(ctx, "missing", TurnInput{Content: "hi"})
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = engine.Reset(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = engine.Regenerate(ctx, "missing", "x")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestConcurrentTurnsOnOneSessionSerialize(t *testing.T) {
	engine, oracle := setupEngine(t)
	ctx := context.Background()

	start, err := engine.Start(ctx, "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.HandleTurn(ctx, start.SessionID, TurnInput{Content: "hello"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	var lengths []int
	for _, c := range oracle.callsFor(dialogueSystemPrompt)[1:] {
		lengths = append(lengths, len(c.turns))
	}
	assert.ElementsMatch(t, []int{2, 4}, lengths)

	sess, err := engine.Session(ctx, start.SessionID)
	require.NoError(t, err)
	assert.Len(t, sess.Transcript, 5)
}

func TestPluginName(t *testing.T) {
	assert.Equal(t, "NewProjectCreatePlugin", pluginName(Record{Entity: "new_project", Trigger: "create"}))
	assert.Equal(t, "UnknownPlugin", pluginName(Record{}))
}

// --- Routes ---

func setupRouter(t *testing.T) (*chi.Mux, *fakeOracle) {
	t.Helper()
	engine, oracle := setupEngine(t)
	r := chi.NewRouter()
	RegisterRoutes(r, engine)
	return r, oracle
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRoutesConversation(t *testing.T) {
	r, _ := setupRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/sessions", `{"user_id":"bob"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var start TurnResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &start))
	require.NotEmpty(t, start.SessionID)

	w = doJSON(t, r, http.MethodPost, "/api/sessions/"+start.SessionID+"/turns", `{"content":"`+scenarioAText+`"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var turn TurnResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &turn))
	assert.Equal(t, ReplySummary, turn.Kind)

	w = doJSON(t, r, http.MethodPost, "/api/sessions/"+start.SessionID+"/regenerate", `{"new_logic":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "NO_HISTORY")

	w = doJSON(t, r, http.MethodPost, "/api/sessions/"+start.SessionID+"/turns", `{"confirm":true}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodGet, "/api/sessions/"+start.SessionID+"/history", "")
	require.Equal(t, http.StatusOK, w.Code)
	var history []CodeRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	assert.Len(t, history, 1)

	w = doJSON(t, r, http.MethodGet, "/api/sessions/"+start.SessionID, "")
	require.Equal(t, http.StatusOK, w.Code)
	var sess Session
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sess))
	assert.Equal(t, StateConfirmed, sess.State)
	assert.Equal(t, "bob", sess.UserID)

	w = doJSON(t, r, http.MethodPost, "/api/sessions/"+start.SessionID+"/reset", "")
	require.Equal(t, http.StatusOK, w.Code)
}

func TestRoutesErrors(t *testing.T) {
	r, oracle := setupRouter(t)

	w := doJSON(t, r, http.MethodGet, "/api/sessions/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/sessions/nope/turns", "{bad")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/sessions", "")
	require.Equal(t, http.StatusCreated, w.Code)
	var start TurnResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &start))

	w = doJSON(t, r, http.MethodPost, "/api/sessions/"+start.SessionID+"/regenerate", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	oracle.mu.Lock()
	oracle.failWith[dialogueSystemPrompt] = apperrors.NewUpstreamError("openai", "", 500, "boom")
	oracle.mu.Unlock()
	w = doJSON(t, r, http.MethodPost, "/api/sessions/"+start.SessionID+"/turns", `{"content":"hi"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "UPSTREAM_ERROR")
}
