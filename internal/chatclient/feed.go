package chatclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"campusmarket/backend/internal/models"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WSFeed implements Feed by dialing the server's /ws endpoint.
type WSFeed struct {
	URL    string
	Token  string
	Dialer *websocket.Dialer
	Logger *zap.Logger
}

func NewWSFeed(wsURL, token string, logger *zap.Logger) *WSFeed {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSFeed{URL: wsURL, Token: token, Dialer: websocket.DefaultDialer, Logger: logger}
}

// WebSocketURL derives the feed address from an http(s) API base URL.
func WebSocketURL(baseURL string) (string, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path += "/ws"
	return u.String(), nil
}

func (f *WSFeed) Subscribe(ctx context.Context) (<-chan models.MessageEvent, func(), error) {
	header := http.Header{}
	if f.Token != "" {
		header.Set("Authorization", "Bearer "+f.Token)
	}
	conn, _, err := f.Dialer.DialContext(ctx, f.URL, header)
	if err != nil {
		return nil, nil, err
	}

	events := make(chan models.MessageEvent, 16)
	quit := make(chan struct{})
	var once sync.Once
	stop := func() {
		once.Do(func() {
			close(quit)
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			conn.Close()
		})
	}

	go func() {
		defer close(events)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				select {
				case <-quit:
				default:
					f.Logger.Debug("live feed closed", zap.Error(err))
				}
				return
			}
			var ev models.MessageEvent
			if err := json.Unmarshal(data, &ev); err != nil {
				f.Logger.Warn("undecodable feed event", zap.Error(err))
				continue
			}
			select {
			case events <- ev:
			case <-quit:
				return
			}
		}
	}()

	return events, stop, nil
}
