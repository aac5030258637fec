package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"

	"tasnim.dev/workshop-infra/internal/aws/cloudformation"
	"tasnim.dev/workshop-infra/internal/deploy"
)

func newTestModel(ch chan deploy.Progress, cancel func()) Model {
	m := NewModel(Header{Action: "deploy", Profile: "workshop", Region: "us-east-1", AccountID: "123456789012"}, ch, cancel)
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m.started = start
	m.now = func() time.Time { return start.Add(65 * time.Second) }
	return m
}

func send(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return nm, cmd
}

func TestView_Header(t *testing.T) {
	m := newTestModel(make(chan deploy.Progress), nil)

	view := m.View().Content
	for _, want := range []string{"Coder workshop · deploy", "123456789012", "us-east-1", "workshop", "Starting", "q cancel"} {
		if !strings.Contains(view, want) {
			t.Errorf("view should contain %q", want)
		}
	}
	if !m.View().AltScreen {
		t.Error("view should use the alt screen")
	}
}

func TestUpdate_ProgressRows(t *testing.T) {
	m := newTestModel(make(chan deploy.Progress), nil)

	m, _ = send(t, m, progressMsg{deploy.Progress{Stack: "CoderInfrastructureStack", Phase: deploy.Queued}})
	m, _ = send(t, m, progressMsg{deploy.Progress{Stack: "CoderDeploymentStack", Phase: deploy.Queued}})
	m, cmd := send(t, m, progressMsg{deploy.Progress{Stack: "CoderInfrastructureStack", Phase: deploy.Deploying}})
	if cmd == nil {
		t.Fatal("progress should schedule the next read")
	}

	if len(m.rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(m.rows))
	}
	view := m.View().Content
	if !strings.Contains(view, "CoderInfrastructureStack") || !strings.Contains(view, "CoderDeploymentStack") {
		t.Error("view should list both stacks")
	}
	if !strings.Contains(view, "deploying CoderInfrastructureStack (1m05s)") {
		t.Errorf("footer should show the active stack and elapsed time\n%s", view)
	}
}

func TestUpdate_EventsTrimmedAndCounted(t *testing.T) {
	m := newTestModel(make(chan deploy.Progress), nil)
	m, _ = send(t, m, progressMsg{deploy.Progress{Stack: "Infra", Phase: deploy.Deploying}})

	for i := 0; i < maxEvents+3; i++ {
		e := cloudformation.Event{
			ID:        string(rune('a' + i)),
			LogicalID: "Subnet",
			Status:    "CREATE_COMPLETE",
			Timestamp: time.Date(2026, 3, 1, 12, 0, i, 0, time.UTC),
		}
		m, _ = send(t, m, progressMsg{deploy.Progress{Stack: "Infra", Phase: deploy.Deploying, Event: &e}})
	}
	stackEvent := cloudformation.Event{ID: "z", LogicalID: "Infra", Status: "CREATE_COMPLETE"}
	m, _ = send(t, m, progressMsg{deploy.Progress{Stack: "Infra", Phase: deploy.Deploying, Status: "CREATE_COMPLETE", Event: &stackEvent}})

	if len(m.events) != maxEvents {
		t.Errorf("expected %d events kept, got %d", maxEvents, len(m.events))
	}
	if m.rows[0].finished != maxEvents+3 {
		t.Errorf("stack event should not count as a resource, got %d", m.rows[0].finished)
	}
	if m.rows[0].status != "CREATE_COMPLETE" {
		t.Errorf("stack status = %q", m.rows[0].status)
	}
	if !strings.Contains(m.View().Content, "Recent events") {
		t.Error("view should show recent events")
	}
}

func TestUpdate_FailureShown(t *testing.T) {
	m := newTestModel(make(chan deploy.Progress), nil)
	m, _ = send(t, m, progressMsg{deploy.Progress{Stack: "Infra", Phase: deploy.Failed, Err: errors.New("stack failed: ROLLBACK_COMPLETE")}})
	m, cmd := send(t, m, progressClosedMsg{})

	if cmd != nil {
		t.Fatal("a failed run should stay on screen after the channel closes")
	}
	if !m.Failed() {
		t.Error("model should report failure")
	}
	view := m.View().Content
	if !strings.Contains(view, "Failed after 1m05s") {
		t.Errorf("view should show failure\n%s", view)
	}
	if !strings.Contains(view, "ROLLBACK_COMPLETE") {
		t.Error("view should show the error")
	}
	if !strings.Contains(view, "press any key to exit") {
		t.Error("view should tell the user how to exit")
	}

	_, cmd = send(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if cmd == nil {
		t.Error("any key should exit once the run has failed")
	}
}

func TestUpdate_Finished(t *testing.T) {
	m := newTestModel(make(chan deploy.Progress), nil)
	m, _ = send(t, m, progressMsg{deploy.Progress{Stack: "Infra", Phase: deploy.Done, Status: "CREATE_COMPLETE"}})
	m, cmd := send(t, m, progressClosedMsg{})

	if cmd == nil {
		t.Error("a successful run should quit when the channel closes")
	}
	if m.Failed() {
		t.Error("model should not report failure")
	}
	if !strings.Contains(m.View().Content, "Finished in 1m05s") {
		t.Error("view should show completion")
	}
}

func TestUpdate_QuitCancelsFirst(t *testing.T) {
	cancelled := 0
	m := newTestModel(make(chan deploy.Progress), func() { cancelled++ })

	m, cmd := send(t, m, tea.KeyPressMsg{Code: 'q', Text: "q"})
	if cancelled != 1 {
		t.Errorf("first q should cancel, cancelled=%d", cancelled)
	}
	if cmd != nil {
		t.Error("first q should keep draining progress")
	}
	if !strings.Contains(m.View().Content, "Cancelling") {
		t.Error("view should show cancellation")
	}

	_, cmd = send(t, m, tea.KeyPressMsg{Code: 'q', Text: "q"})
	if cmd == nil {
		t.Error("second q should quit")
	}
	if cancelled != 1 {
		t.Error("cancel should run once")
	}
}

func TestWaitForProgress(t *testing.T) {
	ch := make(chan deploy.Progress, 1)
	ch <- deploy.Progress{Stack: "Infra", Phase: deploy.Queued}
	close(ch)

	cmd := waitForProgress(ch)
	if msg, ok := cmd().(progressMsg); !ok || msg.p.Stack != "Infra" {
		t.Errorf("expected progress for Infra, got %#v", msg)
	}
	if _, ok := cmd().(progressClosedMsg); !ok {
		t.Error("expected closed message after channel drains")
	}
}
