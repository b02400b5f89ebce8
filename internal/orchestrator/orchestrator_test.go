package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siteforgelabs/siteforged/internal/agents"
	"github.com/siteforgelabs/siteforged/internal/section"
	"github.com/siteforgelabs/siteforged/internal/stage"
	"github.com/siteforgelabs/siteforged/internal/telemetry"
)

type fakeTextGen struct{}

func (fakeTextGen) Generate(context.Context, string, string, string, string) (string, error) {
	return "lead reply", nil
}

type fakeFrontend struct {
	failSections map[section.Name]error
	emptyMarkup  bool
	calls        []section.Name
}

func (f *fakeFrontend) GenerateSection(_ context.Context, name section.Name, _, _, _, _ string) (agents.SectionResult, error) {
	f.calls = append(f.calls, name)
	if err := f.failSections[name]; err != nil {
		return agents.SectionResult{}, err
	}
	if f.emptyMarkup {
		return agents.SectionResult{Response: "prose only"}, nil
	}
	markup := fmt.Sprintf("<%s>generated</%s>", name, name)
	return agents.SectionResult{Response: "raw", Markup: markup}, nil
}

type fakeBackend struct {
	code  string
	err   error
	calls int
}

func (f *fakeBackend) GenerateAPI(context.Context, string, string, string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.code, nil
}

type fakeTester struct {
	report string
	err    error
	calls  int
}

func (f *fakeTester) TestFrontend(context.Context, string, string, string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.report, nil
}

type storedExchange struct {
	sessionID, agent, stage, message, response string
}

type fakeStore struct {
	appended []storedExchange
	context  string
	cleared  []string
}

func (f *fakeStore) Append(_ context.Context, sessionID, agent, stageName, msg, resp string) error {
	f.appended = append(f.appended, storedExchange{sessionID, agent, stageName, msg, resp})
	return nil
}

func (f *fakeStore) Retrieve(context.Context, string, string, int) (string, error) {
	return f.context, nil
}

func (f *fakeStore) Clear(_ context.Context, sessionID string) error {
	f.cleared = append(f.cleared, sessionID)
	return nil
}

type fixture struct {
	orch     *Orchestrator
	frontend *fakeFrontend
	backend  *fakeBackend
	tester   *fakeTester
	store    *fakeStore
}

func newFixture() *fixture {
	f := &fixture{
		frontend: &fakeFrontend{failSections: map[section.Name]error{}},
		backend:  &fakeBackend{code: strings.Repeat("from flask import Flask\n", 10)},
		tester:   &fakeTester{report: "TEST RESULTS:\nall good"},
		store:    &fakeStore{},
	}
	f.orch = New(fakeTextGen{}, f.frontend, f.backend, f.tester, f.store, telemetry.New("test"), nil)
	return f
}

// driveToFooter walks a session through the whole build.
func driveToFooter(t *testing.T, f *fixture, sessionID string) Reply {
	t.Helper()
	ctx := context.Background()
	messages := []string{
		"I want an ecommerce website",
		"TechStore, blue and white",
		"header with logo and nav",
		"hero with a big headline",
		"fast shipping and support",
	}
	for _, msg := range messages {
		_, err := f.orch.ProcessMessage(ctx, sessionID, msg, "key")
		require.NoError(t, err)
	}
	reply, err := f.orch.ProcessMessage(ctx, sessionID, "a simple footer", "key")
	require.NoError(t, err)
	return reply
}

func TestProcessMessage_FullFlowBuildsEverything(t *testing.T) {
	f := newFixture()

	reply := driveToFooter(t, f, "jane_session")

	assert.Equal(t, stage.StageFooter, reply.Stage)
	assert.Equal(t, stage.AgentFrontend, reply.Agent)
	assert.Equal(t, section.Footer, reply.Section)
	assert.Equal(t, []section.Name{section.Header, section.Hero, section.Features, section.Footer}, reply.Completed)
	assert.True(t, reply.BackendBuilt)
	assert.Contains(t, reply.Message, "complete")
	assert.Contains(t, reply.Preview, "<header>generated</header>")
	assert.Contains(t, reply.Preview, "<footer>generated</footer>")

	assert.Equal(t, []section.Name{section.Header, section.Hero, section.Features, section.Footer}, f.frontend.calls)
	assert.Equal(t, 1, f.backend.calls)
	assert.Equal(t, 1, f.tester.calls)

	st := f.orch.Status("jane_session")
	assert.Equal(t, stage.StageComplete, st.Stage)
	assert.True(t, st.BackendBuilt)
	assert.True(t, st.TestsRun)
}

func TestProcessMessage_LeadTurnHasNoSideEffects(t *testing.T) {
	f := newFixture()

	reply, err := f.orch.ProcessMessage(context.Background(), "jane_session", "I want a blog", "key")

	require.NoError(t, err)
	assert.Equal(t, stage.AgentLead, reply.Agent)
	assert.Equal(t, stage.StageGatheringDetails, reply.Stage)
	assert.Empty(t, reply.Section)
	assert.Empty(t, reply.Preview)
	assert.Empty(t, f.frontend.calls)
	assert.Zero(t, f.backend.calls)
}

func TestProcessMessage_SectionFailureStillAdvancesFlow(t *testing.T) {
	f := newFixture()
	f.frontend.failSections[section.Header] = errors.New("rate limited")
	ctx := context.Background()

	_, err := f.orch.ProcessMessage(ctx, "jane_session", "I want an ecommerce website", "key")
	require.NoError(t, err)
	_, err = f.orch.ProcessMessage(ctx, "jane_session", "TechStore", "key")
	require.NoError(t, err)

	reply, err := f.orch.ProcessMessage(ctx, "jane_session", "header with logo", "key")

	require.NoError(t, err)
	assert.Equal(t, stage.StageHeader, reply.Stage)
	assert.Empty(t, reply.Completed, "failed build must not store a section")
	assert.Empty(t, reply.Preview)

	// The flow still moved on to the hero prompt.
	st := f.orch.Status("jane_session")
	assert.Equal(t, stage.StageWaitingHero, st.Stage)
}

func TestProcessMessage_EmptyMarkupNotStored(t *testing.T) {
	f := newFixture()
	f.frontend.emptyMarkup = true
	ctx := context.Background()

	_, err := f.orch.ProcessMessage(ctx, "jane_session", "I want a blog site", "key")
	require.NoError(t, err)
	_, err = f.orch.ProcessMessage(ctx, "jane_session", "My Blog", "key")
	require.NoError(t, err)
	reply, err := f.orch.ProcessMessage(ctx, "jane_session", "minimal header", "key")

	require.NoError(t, err)
	assert.Empty(t, reply.Completed)
}

func TestAutoBuild_BackendErrorKeepsPriorArtifact(t *testing.T) {
	f := newFixture()
	driveToFooter(t, f, "jane_session")
	require.True(t, f.orch.Status("jane_session").BackendBuilt)

	// Regenerate the footer; this time the backend generator fails.
	f.backend.err = errors.New("boom")
	ctx := context.Background()
	_, err := f.orch.ProcessMessage(ctx, "jane_session", "regenerate footer", "key")
	require.NoError(t, err)
	_, err = f.orch.ProcessMessage(ctx, "jane_session", "a darker footer", "key")
	require.NoError(t, err)

	assert.True(t, f.orch.Status("jane_session").BackendBuilt, "prior backend artifact must survive")
	assert.Equal(t, 2, f.backend.calls)
}

func TestAutoBuild_EmptyBackendStoredVerbatim(t *testing.T) {
	f := newFixture()
	f.backend.code = ""

	reply := driveToFooter(t, f, "jane_session")

	assert.False(t, reply.BackendBuilt)
	assert.False(t, f.orch.Status("jane_session").BackendBuilt)
	assert.True(t, f.orch.Status("jane_session").TestsRun)
}

func TestPreview_UnknownSessionIsEmpty(t *testing.T) {
	f := newFixture()

	assert.Empty(t, f.orch.Preview("nobody_session"))
}

func TestPreview_ReflectsBuiltSections(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	for _, msg := range []string{"I want a shop", "Shoply", "glass header"} {
		_, err := f.orch.ProcessMessage(ctx, "jane_session", msg, "key")
		require.NoError(t, err)
	}

	preview := f.orch.Preview("jane_session")

	assert.Contains(t, preview, "<header>generated</header>")
	assert.Equal(t, preview, f.orch.Preview("jane_session"), "preview must not mutate state")
}

func TestReset_ClearsSessionAndHistory(t *testing.T) {
	f := newFixture()
	driveToFooter(t, f, "jane_session")

	require.NoError(t, f.orch.Reset(context.Background(), "jane_session"))

	st := f.orch.Status("jane_session")
	assert.Equal(t, stage.StageInitial, st.Stage)
	assert.Empty(t, st.Completed)
	assert.False(t, st.BackendBuilt)
	assert.Equal(t, []string{"jane_session"}, f.store.cleared)
	assert.Empty(t, f.orch.Preview("jane_session"))
}

func TestReset_UnknownSessionOnlyClearsHistory(t *testing.T) {
	f := newFixture()

	require.NoError(t, f.orch.Reset(context.Background(), "ghost_session"))

	assert.Equal(t, []string{"ghost_session"}, f.store.cleared)
	assert.False(t, f.orch.Status("ghost_session").Exists)
}

func TestProcessMessage_ExchangesArePersisted(t *testing.T) {
	f := newFixture()

	_, err := f.orch.ProcessMessage(context.Background(), "jane_session", "I want a blog", "key")

	require.NoError(t, err)
	require.Len(t, f.store.appended, 1)
	ex := f.store.appended[0]
	assert.Equal(t, "jane_session", ex.sessionID)
	assert.Equal(t, "lead", ex.agent)
	assert.Equal(t, "I want a blog", ex.message)
	assert.Equal(t, "lead reply", ex.response)
}

func TestProcessMessage_AllAgentsPersistHistory(t *testing.T) {
	f := newFixture()

	driveToFooter(t, f, "jane_session")

	byAgent := map[string][]storedExchange{}
	for _, ex := range f.store.appended {
		byAgent[ex.agent] = append(byAgent[ex.agent], ex)
	}

	assert.Len(t, byAgent["lead"], 6, "one lead exchange per user message")
	assert.Len(t, byAgent["frontend"], 4, "one frontend interaction per built section")
	require.Len(t, byAgent["backend"], 1)
	require.Len(t, byAgent["test"], 1)

	assert.Equal(t, "complete", byAgent["backend"][0].stage)
	assert.Contains(t, byAgent["test"][0].response, "TEST RESULTS")
	assert.Equal(t, "header", byAgent["frontend"][0].stage)
}

func TestProcessMessage_FailedBuildPersistsOnlyLeadExchange(t *testing.T) {
	f := newFixture()
	f.frontend.failSections[section.Header] = errors.New("rate limited")
	ctx := context.Background()

	for _, msg := range []string{"I want a shop", "Shoply", "glass header"} {
		_, err := f.orch.ProcessMessage(ctx, "jane_session", msg, "key")
		require.NoError(t, err)
	}

	for _, ex := range f.store.appended {
		assert.Equal(t, "lead", ex.agent)
	}
}

func TestStatus_TracksSessionTimes(t *testing.T) {
	f := newFixture()

	assert.True(t, f.orch.Status("nobody_session").CreatedAt.IsZero())

	_, err := f.orch.ProcessMessage(context.Background(), "jane_session", "I want a blog", "key")
	require.NoError(t, err)

	st := f.orch.Status("jane_session")
	assert.False(t, st.CreatedAt.IsZero())
	assert.False(t, st.LastActive.Before(st.CreatedAt))
}

func TestSessionID(t *testing.T) {
	assert.Equal(t, "jane.doe_session", SessionID("jane.doe"))
}
