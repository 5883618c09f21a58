package commands

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/edvora/minerva/pkg/cli"
	"github.com/edvora/minerva/pkg/store"
	"github.com/edvora/minerva/pkg/tutor"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive tutoring session against a running server",
	Long: `Interactive tutoring session against a running server.

Creates a session, opens a WebSocket turn stream and reads messages from
stdin. The lesson opens with the coordinator's greeting; Ctrl-D ends the
session.

Examples:
  minerva chat --user alice --lesson multiplication-01
  minerva chat --user alice --server http://tutor.local:8080
  minerva chat --user alice --save-audio ./clips`,
	RunE: runChat,
}

var (
	chatServer    string
	chatUser      string
	chatLesson    string
	chatSaveAudio string
)

func init() {
	chatCmd.Flags().StringVar(&chatServer, "server", "http://localhost:8080", "gateway base URL")
	chatCmd.Flags().StringVarP(&chatUser, "user", "u", "", "student user id (required)")
	chatCmd.Flags().StringVarP(&chatLesson, "lesson", "l", "", "lesson id to open")
	chatCmd.Flags().StringVar(&chatSaveAudio, "save-audio", "", "directory for synthesized clips")

	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	if chatUser == "" {
		return fmt.Errorf("--user is required")
	}
	if chatSaveAudio != "" {
		if err := os.MkdirAll(chatSaveAudio, 0o755); err != nil {
			return fmt.Errorf("create audio dir: %w", err)
		}
	}

	base := strings.TrimRight(chatServer, "/")
	sess, err := createSession(base, chatUser, chatLesson)
	if err != nil {
		return err
	}

	wsURL := toWebSocketURL(base) + "/v1/turns/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", wsURL, err)
	}
	defer conn.Close()

	styles := cli.NewStyles(cli.DefaultTheme)
	p := &printer{styles: styles, saveDir: chatSaveAudio}

	note := sess.ID
	if chatLesson != "" {
		note = chatLesson + " · " + sess.ID
	}
	fmt.Println(styles.Banner("minerva chat", note))
	fmt.Println(styles.Meta.Render("Type a message and press enter. Ctrl-D ends the session."))
	fmt.Println()

	// The reserved opener makes the coordinator greet from the lesson.
	err = p.runTurn(conn, tutor.TurnRequest{
		UserID:      chatUser,
		SessionID:   sess.ID,
		UserMessage: tutor.LessonStart,
	})
	if err != nil {
		return err
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(styles.Prompt.Render("you ▸ "))
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		err := p.runTurn(conn, tutor.TurnRequest{
			UserID:      chatUser,
			SessionID:   sess.ID,
			UserMessage: line,
		})
		if err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	fmt.Println()
	if err := endSession(base, sess.ID); err != nil {
		cli.PrintWarning("end session: %v", err)
	} else {
		cli.PrintInfo("session %s ended", sess.ID)
	}
	return nil
}

// agentWidth aligns speaker labels across turns.
const agentWidth = 8

// printer renders one turn's event stream to the terminal.
type printer struct {
	styles  cli.Styles
	saveDir string
	turn    int
}

// runTurn sends one request and prints events until the terminal one.
func (p *printer) runTurn(conn *websocket.Conn, req tutor.TurnRequest) error {
	p.turn++
	start := time.Now()
	if err := conn.WriteJSON(req); err != nil {
		return fmt.Errorf("send turn: %w", err)
	}
	for {
		var ev tutor.Event
		if err := conn.ReadJSON(&ev); err != nil {
			return fmt.Errorf("read event: %w", err)
		}
		done, err := p.print(ev, start)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

func (p *printer) print(ev tutor.Event, start time.Time) (bool, error) {
	switch ev.Kind {
	case tutor.EventText:
		if ev.HandoffMessage != "" {
			fmt.Println(p.styles.Meta.Render(strings.Repeat(" ", agentWidth+3) + ev.HandoffMessage))
		}
		fmt.Printf("%s %s\n", p.styles.AgentLabel(ev.AgentName, agentWidth), ev.DisplayText)
		if ev.Diagram != "" {
			for _, line := range strings.Split(ev.Diagram, "\n") {
				fmt.Println(p.styles.Meta.Render(strings.Repeat(" ", agentWidth+3) + line))
			}
		}
		if ev.LessonComplete {
			cli.PrintSuccess("lesson complete")
		}

	case tutor.EventAudio:
		if ev.Payload == nil {
			fmt.Println(p.styles.Meta.Render(fmt.Sprintf("  ♪ %d (synthesis failed)", ev.Index)))
			break
		}
		size := cli.FormatBytes(int64(len(ev.Payload)))
		if p.saveDir == "" {
			fmt.Println(p.styles.Meta.Render(fmt.Sprintf("  ♪ %d %s", ev.Index, size)))
			break
		}
		name := fmt.Sprintf("turn-%03d-%02d.pcm", p.turn, ev.Index)
		if err := cli.OutputBytes(ev.Payload, filepath.Join(p.saveDir, name)); err != nil {
			return false, fmt.Errorf("save audio: %w", err)
		}
		fmt.Println(p.styles.Meta.Render(fmt.Sprintf("  ♪ %d %s → %s", ev.Index, size, name)))

	case tutor.EventDone:
		fmt.Println(p.styles.Meta.Render("· " + cli.FormatDuration(time.Since(start))))
		fmt.Println()
		return true, nil

	case tutor.EventError:
		fmt.Println(p.styles.Error.Render("error: " + ev.Message))
		fmt.Println()
		return true, nil
	}
	return false, nil
}

// toWebSocketURL swaps the http scheme for ws, keeping everything else.
func toWebSocketURL(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base
}

func createSession(base, userID, lessonID string) (*store.Session, error) {
	body, err := json.Marshal(map[string]string{"user_id": userID, "lesson_id": lessonID})
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(base+"/v1/sessions", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("create session: %s", readAPIError(resp))
	}
	var sess store.Session
	if err := json.NewDecoder(resp.Body).Decode(&sess); err != nil {
		return nil, fmt.Errorf("create session: decode: %w", err)
	}
	return &sess, nil
}

func endSession(base, id string) error {
	resp, err := http.Post(base+"/v1/sessions/"+id+"/end", "application/json", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s", readAPIError(resp))
	}
	return nil
}

// readAPIError extracts the gateway's {"error": ...} payload, falling
// back to the HTTP status.
func readAPIError(resp *http.Response) string {
	var e struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&e); err == nil && e.Error != "" {
		return e.Error
	}
	return resp.Status
}
