package notification

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rabbitmq/amqp091-go"
	"golang.org/x/sync/errgroup"

	"tableside/internal/logger"
	"tableside/internal/messaging"
	"tableside/internal/models"
)

// Gateway bridges the event exchange to websocket consoles. Each gateway
// instance binds its own server-named queue to notify.#, so every
// instance sees every frame and serves its own connections.
type Gateway struct {
	hub      *Hub
	conn     *messaging.Connection
	logger   *logger.Logger
	upgrader websocket.Upgrader
}

// NewGateway creates a gateway over an established broker connection.
func NewGateway(conn *messaging.Connection, log *logger.Logger) *Gateway {
	return &Gateway{
		hub:    NewHub(log),
		conn:   conn,
		logger: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Consoles are served from other origins in deployment.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Run starts the hub and the exchange consumer, and blocks until the
// context is cancelled or the consumer fails.
func (g *Gateway) Run(ctx context.Context) error {
	queueName, err := g.conn.DeclareSubscriberQueue("notify.#")
	if err != nil {
		return err
	}

	go g.hub.Run()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		consumer := messaging.NewConsumer(g.conn, g.logger, queueName, "notification-gateway", 50, false)
		return consumer.StartConsuming(ctx, g.handleEvent)
	})
	return group.Wait()
}

// handleEvent forwards one broker frame to the matching console group.
// Routing keys look like notify.<restaurant_id>.<role>.
func (g *Gateway) handleEvent(ctx context.Context, delivery amqp091.Delivery) error {
	parts := strings.Split(delivery.RoutingKey, ".")
	if len(parts) != 3 {
		g.logger.Warn("event_malformed", "Dropping frame with unexpected routing key", "",
			map[string]interface{}{"routing_key": delivery.RoutingKey})
		return nil
	}

	restaurantID, err := uuid.Parse(parts[1])
	if err != nil {
		g.logger.Warn("event_malformed", "Dropping frame with invalid restaurant id", "",
			map[string]interface{}{"routing_key": delivery.RoutingKey})
		return nil
	}

	g.hub.Broadcast(restaurantID, parts[2], delivery.Body)
	return nil
}

// RegisterRoutes attaches the websocket endpoint to the mux.
func (g *Gateway) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws", g.serveWS)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
}

// serveWS upgrades the connection and subscribes it for the requested
// restaurant and role.
func (g *Gateway) serveWS(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := uuid.Parse(r.Header.Get("X-Restaurant-ID"))
	if err != nil {
		http.Error(w, "X-Restaurant-ID header must be a valid UUID", http.StatusBadRequest)
		return
	}

	role := r.URL.Query().Get("role")
	if role == "" {
		role = models.RoleAll
	}
	if role != models.RoleAll && role != models.RoleKitchen {
		http.Error(w, "role must be all or kitchen", http.StatusBadRequest)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Error("upgrade_failed", "Websocket upgrade failed", "", err, nil)
		return
	}

	g.hub.Register(conn, restaurantID, role)
}
