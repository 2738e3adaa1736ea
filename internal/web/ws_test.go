package web

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lexiqai/knowledge-extractor/internal/orchestrator"
)

func dialWS(t *testing.T, runner Runner) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(NewServer(runner).Handler())
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to dial WebSocket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func readEvents(t *testing.T, conn *websocket.Conn) []wsEvent {
	t.Helper()
	var events []wsEvent
	for {
		var ev wsEvent
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("Failed to read event: %v", err)
		}
		events = append(events, ev)
		if ev.Type == eventResult || ev.Type == eventError {
			return events
		}
	}
}

func TestWS_StreamsProgressThenResult(t *testing.T) {
	conn := dialWS(t, &fakeRunner{result: catsResult()})

	if err := conn.WriteJSON(wsRequest{URL: "https://youtu.be/dQw4w9WgXcQ"}); err != nil {
		t.Fatalf("Failed to send request: %v", err)
	}
	events := readEvents(t, conn)

	wantStages := []orchestrator.Stage{
		orchestrator.StageFetching,
		orchestrator.StageQuestions,
		orchestrator.StageAnswers,
		orchestrator.StageDone,
	}
	if len(events) != len(wantStages)+1 {
		t.Fatalf("Expected %d events, got %d: %+v", len(wantStages)+1, len(events), events)
	}
	for i, stage := range wantStages {
		if events[i].Type != eventProgress || events[i].Stage != stage {
			t.Errorf("Event %d: expected progress %s, got %+v", i, stage, events[i])
		}
	}

	last := events[len(events)-1]
	if last.Type != eventResult || last.Result == nil {
		t.Fatalf("Expected result event, got %+v", last)
	}
	if last.Result.Questions != "Q: What is a cat?" || last.Result.Answers != "A: A cat is a mammal." {
		t.Errorf("Unexpected result: %+v", last.Result)
	}
}

func TestWS_FetchErrorEvent(t *testing.T) {
	conn := dialWS(t, &fakeRunner{err: invalidURLError()})

	conn.WriteJSON(wsRequest{URL: "https://example.com"})
	events := readEvents(t, conn)

	last := events[len(events)-1]
	if last.Type != eventError {
		t.Fatalf("Expected error event, got %+v", last)
	}
	if !strings.HasPrefix(last.Message, "Error: ") {
		t.Errorf("Expected user-facing error message, got %q", last.Message)
	}
}

func TestWS_EmptyURL(t *testing.T) {
	runner := &fakeRunner{result: catsResult()}
	conn := dialWS(t, runner)

	conn.WriteJSON(wsRequest{URL: ""})
	events := readEvents(t, conn)

	if len(events) != 1 || events[0].Message != msgMissingURL {
		t.Errorf("Expected a single %q error, got %+v", msgMissingURL, events)
	}
	if runner.calls() != 0 {
		t.Errorf("Expected no run, got %d", runner.calls())
	}
}

func TestWS_MalformedMessage(t *testing.T) {
	conn := dialWS(t, &fakeRunner{result: catsResult()})

	conn.WriteMessage(websocket.TextMessage, []byte("not json"))
	events := readEvents(t, conn)
	if events[0].Type != eventError {
		t.Errorf("Expected error event for malformed message, got %+v", events[0])
	}

	// The session stays usable after a bad message.
	conn.WriteJSON(wsRequest{URL: "dQw4w9WgXcQ"})
	events = readEvents(t, conn)
	if events[len(events)-1].Type != eventResult {
		t.Errorf("Expected result after recovery, got %+v", events[len(events)-1])
	}
}

func TestWS_EachRunHasItsOwnCorrelationID(t *testing.T) {
	runner := &fakeRunner{result: catsResult()}
	conn := dialWS(t, runner)

	for i := 0; i < 2; i++ {
		conn.WriteJSON(wsRequest{URL: "dQw4w9WgXcQ"})
		readEvents(t, conn)
	}

	runner.mu.Lock()
	defer runner.mu.Unlock()
	if len(runner.ctxIDs) != 2 {
		t.Fatalf("Expected 2 runs, got %d", len(runner.ctxIDs))
	}
	if runner.ctxIDs[0] == "" || runner.ctxIDs[0] == runner.ctxIDs[1] {
		t.Errorf("Expected distinct correlation ids, got %v", runner.ctxIDs)
	}
}
