package batch

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freecloud-keepalive/auth"
	"freecloud-keepalive/pacing"
)

type scriptedRunner struct {
	outcomes map[string]auth.SessionResult
	calls    []string
}

func (sr *scriptedRunner) Run(_ context.Context, cred auth.Credential) auth.SessionResult {
	sr.calls = append(sr.calls, cred.Identity)
	return sr.outcomes[cred.Identity]
}

type memoryRecorder struct {
	records [][3]string
	err     error
}

func (mr *memoryRecorder) RecordRun(identity, outcome, detail string) error {
	mr.records = append(mr.records, [3]string{identity, outcome, detail})
	return mr.err
}

func testRunner(runner AccountRunner, recorder Recorder) *Runner {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return NewRunner(runner, recorder, pacing.New(pacing.Config{}, log), log)
}

func TestRunProcessesAllAccountsSequentially(t *testing.T) {
	scripted := &scriptedRunner{outcomes: map[string]auth.SessionResult{
		"a@b.com": {Identity: "a@b.com", Outcome: auth.ResultSuccess, Detail: "keep-alive successful"},
		"c@d.com": {Identity: "c@d.com", Outcome: auth.ResultFailure, Detail: "cf-timeout"},
		"e@f.com": {Identity: "e@f.com", Outcome: auth.ResultSuccess, Detail: "keep-alive successful"},
	}}
	recorder := &memoryRecorder{}

	summary := testRunner(scripted, recorder).Run(context.Background(), []auth.Credential{
		{Identity: "a@b.com", Secret: "x"},
		{Identity: "c@d.com", Secret: "y"},
		{Identity: "e@f.com", Secret: "z"},
	})

	// One failure never stops the remaining accounts.
	assert.Equal(t, []string{"a@b.com", "c@d.com", "e@f.com"}, scripted.calls)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Results, 3)
	assert.Equal(t, "c@d.com", summary.Results[1].Identity)

	require.Len(t, recorder.records, 3)
	assert.Equal(t, [3]string{"c@d.com", "failure", "cf-timeout"}, recorder.records[1])
}

func TestRunWithoutRecorder(t *testing.T) {
	scripted := &scriptedRunner{outcomes: map[string]auth.SessionResult{
		"a@b.com": {Identity: "a@b.com", Outcome: auth.ResultSuccess},
	}}

	summary := testRunner(scripted, nil).Run(context.Background(), []auth.Credential{{Identity: "a@b.com", Secret: "x"}})

	assert.Equal(t, 1, summary.Succeeded)
}

func TestRunRecorderFailureIsNonFatal(t *testing.T) {
	scripted := &scriptedRunner{outcomes: map[string]auth.SessionResult{
		"a@b.com": {Identity: "a@b.com", Outcome: auth.ResultSuccess},
		"c@d.com": {Identity: "c@d.com", Outcome: auth.ResultSuccess},
	}}
	recorder := &memoryRecorder{err: assert.AnError}

	summary := testRunner(scripted, recorder).Run(context.Background(), []auth.Credential{
		{Identity: "a@b.com", Secret: "x"},
		{Identity: "c@d.com", Secret: "y"},
	})

	assert.Equal(t, 2, summary.Succeeded)
	assert.Len(t, recorder.records, 2)
}

func TestRunEmptyAccountList(t *testing.T) {
	summary := testRunner(&scriptedRunner{}, nil).Run(context.Background(), nil)
	assert.Empty(t, summary.Results)
	assert.Zero(t, summary.Succeeded)
	assert.Zero(t, summary.Failed)
}
