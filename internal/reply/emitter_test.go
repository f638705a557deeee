package reply

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/m3rciful/shopbot/core/telegram/keyboard"
)

type recordingGateway struct {
	calls []string
	fail  map[string]bool
}

func (g *recordingGateway) record(call string) error {
	g.calls = append(g.calls, call)
	if g.fail[call] {
		return errors.New("platform rejected " + call)
	}
	return nil
}

func (g *recordingGateway) SendText(_ context.Context, _ int64, text string, _ *Keyboard) error {
	return g.record("text:" + text)
}

func (g *recordingGateway) SendImage(_ context.Context, _ int64, ref, _ string, _ *Keyboard) error {
	return g.record("image:" + ref)
}

func (g *recordingGateway) EditControls(context.Context, int64, int, *Keyboard) error {
	return g.record("edit")
}

func (g *recordingGateway) AnswerCallback(context.Context, string, string, bool) error {
	return g.record("answer")
}

type countingObserver struct {
	ok, failed map[string]int
}

func (o *countingObserver) ObserveReply(kind string, err error) {
	if err != nil {
		o.failed[kind]++
		return
	}
	o.ok[kind]++
}

func TestEmitContinuesAfterFailure(t *testing.T) {
	gw := &recordingGateway{fail: map[string]bool{"image:tea.jpg": true}}
	obs := &countingObserver{ok: map[string]int{}, failed: map[string]int{}}
	e := NewEmitter(gw, obs)

	sent := e.Emit(context.Background(), []Reply{
		Answer("cb1", ""),
		Image(1, "tea.jpg", "Green tea", nil),
		Text(1, "hello", keyboard.ReplyButtons([]string{"a"})),
		EditControls(1, 10, nil),
		{Kind: Kind(99)},
	})

	assert.Equal(t, 3, sent)
	assert.Equal(t, []string{"answer", "image:tea.jpg", "text:hello", "edit"}, gw.calls)
	assert.Equal(t, 1, obs.failed["image"])
	assert.Equal(t, 1, obs.ok["text"])
	// The unknown kind renders as "text" and counts as a failure.
	assert.Equal(t, 1, obs.failed["text"])
}
