package web

import (
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The CORS middleware already limits browser origins; the upgrade check
	// would otherwise reject the frontend's dev port.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type transcriptFrame struct {
	MessageType string `json:"message_type"`
	Text        string `json:"text"`
}

// handleTranscribe relays a live audio websocket to the transcription
// service: binary frames in, finalized transcript frames out. The relay ends
// when the client closes its socket or the upstream socket fails.
func (h *Handler) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Logger.Error("websocket upgrade", "error", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	audio := make(chan []byte)

	transcripts, errs, err := h.Speech.Relay(ctx, audio)
	if err != nil {
		h.Logger.Error("start relay", "error", err)
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "transcription unavailable"))
		return
	}

	// Reader: client frames become relay input until the client hangs up.
	go func() {
		defer close(audio)
		for {
			messageType, frame, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if messageType != websocket.BinaryMessage {
				continue
			}
			select {
			case audio <- frame:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case text, ok := <-transcripts:
			if !ok {
				// The relay closes errs before transcripts, so a transport
				// error that raced the shutdown is already buffered here.
				select {
				case err, open := <-errs:
					if open && err != nil {
						h.Logger.Error("relay failed", "error", err)
						conn.WriteMessage(websocket.CloseMessage,
							websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "relay failed"))
						return
					}
				default:
				}
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteJSON(transcriptFrame{MessageType: "FinalTranscript", Text: text}); err != nil {
				h.Logger.Debug("transcript write failed", "error", err)
				return
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err != nil {
				h.Logger.Error("relay failed", "error", err)
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "relay failed"))
				return
			}
		}
	}
}
