package notification

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"tableside/internal/logger"
	"tableside/internal/models"
)

// dialTestClient connects one console to the hub through a real websocket
// round trip.
func dialTestClient(t *testing.T, hub *Hub, restaurantID uuid.UUID, role string) *websocket.Conn {
	t.Helper()

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		hub.Register(conn, restaurantID, role)
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	return string(payload)
}

func expectNoFrame(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, payload, err := conn.ReadMessage(); err == nil {
		t.Fatalf("unexpected frame: %s", payload)
	}
}

func TestHubRoutesByTenantAndRole(t *testing.T) {
	hub := NewHub(logger.New("notification-test"))
	go hub.Run()

	tenantA := uuid.New()
	tenantB := uuid.New()

	kitchenA := dialTestClient(t, hub, tenantA, models.RoleKitchen)
	allA := dialTestClient(t, hub, tenantA, models.RoleAll)
	kitchenB := dialTestClient(t, hub, tenantB, models.RoleKitchen)

	// Registration races the broadcast if we fire immediately.
	time.Sleep(50 * time.Millisecond)

	hub.Broadcast(tenantA, models.RoleKitchen, []byte(`{"event":"order.new"}`))

	if got := readFrame(t, kitchenA); got != `{"event":"order.new"}` {
		t.Errorf("kitchen console got %q", got)
	}
	expectNoFrame(t, allA)
	expectNoFrame(t, kitchenB)
}

func TestHubDeliversToAllMatchingConsoles(t *testing.T) {
	hub := NewHub(logger.New("notification-test"))
	go hub.Run()

	tenant := uuid.New()
	first := dialTestClient(t, hub, tenant, models.RoleAll)
	second := dialTestClient(t, hub, tenant, models.RoleAll)

	time.Sleep(50 * time.Millisecond)

	hub.Broadcast(tenant, models.RoleAll, []byte(`{"event":"order.updated"}`))

	for _, conn := range []*websocket.Conn{first, second} {
		if got := readFrame(t, conn); got != `{"event":"order.updated"}` {
			t.Errorf("console got %q", got)
		}
	}
}
