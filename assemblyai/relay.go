package assemblyai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
)

// Message is the envelope the transcription socket emits. Only finalized
// transcripts reach the relay's output; interim hypotheses and session
// bookkeeping are dropped.
type Message struct {
	MessageType string `json:"message_type"`
	Text        string `json:"text"`
}

const messageTypeFinal = "FinalTranscript"

var terminateMessage = []byte(`{"terminate_session": true}`)

// Relay forwards audio chunks to a live transcription socket and emits
// finalized transcript segments in the order the service produces them.
//
// A fresh token is minted first; if that fails no socket is opened. The
// transcript channel closes when the socket does, normally after the audio
// channel is exhausted and the termination message is acknowledged. Transport
// errors arrive on the error channel before the transcript channel closes.
// Canceling ctx closes the socket, which unblocks both directions, and a
// socket that ends for any reason stops the sender even while audio stays
// open.
func (c *Client) Relay(ctx context.Context, audio <-chan []byte) (<-chan string, <-chan error, error) {
	token, err := c.IssueToken(ctx, TokenTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("issue token: %w", err)
	}

	conn, err := c.Dial(ctx, c.StreamURL+"&token="+token)
	if err != nil {
		return nil, nil, fmt.Errorf("dial transcription socket: %w", err)
	}

	transcripts := make(chan string)
	errs := make(chan error, 1)
	done := make(chan struct{})

	go c.send(ctx, conn, audio, done)
	go c.receive(ctx, conn, transcripts, errs, done)

	return transcripts, errs, nil
}

func (c *Client) send(ctx context.Context, conn Conn, audio <-chan []byte, done <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			conn.Close()
			return
		case <-done:
			// The socket ended; nothing left to write to.
			return
		case chunk, ok := <-audio:
			if !ok {
				if err := conn.WriteMessage(websocket.TextMessage, terminateMessage); err != nil {
					c.logger.Debug("terminate message not sent", "error", err)
				}
				return
			}
			if err := conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
				// The receiver sees the same broken socket and reports it.
				c.logger.Debug("audio write failed", "error", err)
				return
			}
		}
	}
}

func (c *Client) receive(ctx context.Context, conn Conn, transcripts chan<- string, errs chan<- error, done chan<- struct{}) {
	defer close(transcripts)
	defer close(errs)
	defer conn.Close()
	defer close(done)

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && !websocket.IsCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				errs <- fmt.Errorf("transcription socket: %w", err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(frame, &msg); err != nil {
			c.logger.Warn("unparsable frame", "data", string(frame))
			continue
		}

		if msg.MessageType != messageTypeFinal {
			continue
		}

		select {
		case transcripts <- msg.Text:
		case <-ctx.Done():
			return
		}
	}
}
