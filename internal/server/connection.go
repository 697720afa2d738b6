package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/gravitas-games/gridinv/internal/drag"
	"github.com/gravitas-games/gridinv/internal/geom"
	"github.com/gravitas-games/gridinv/internal/grid"
	"github.com/gravitas-games/gridinv/internal/inventory"
	"github.com/gravitas-games/gridinv/internal/item"
	"github.com/gravitas-games/gridinv/internal/network"
	"github.com/gravitas-games/gridinv/internal/placement"
	"github.com/gravitas-games/gridinv/internal/store"
	"github.com/gravitas-games/gridinv/pkg/models"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 65536

	// Time allowed to persist an inventory when the connection ends
	saveWait = 5 * time.Second
)

// Connection represents a WebSocket connection to a client
type Connection struct {
	// WebSocket connection
	ws *websocket.Conn

	// Server reference
	server *Server

	// Player information (set after authentication)
	player *models.Player

	// Buffered channel for outbound messages
	send chan []byte

	// Client messages waiting for the inventory goroutine
	inbox chan network.ClientMessage

	// Closed when the connection ends
	done      chan struct{}
	closeOnce sync.Once

	// Is connection authenticated
	authenticated bool

	// Layout replies are delivered from the read pump; everything else on
	// the presenter and the inventory belongs to the inventory goroutine
	presenter *remotePresenter
	inventory *inventory.Service
}

// NewConnection creates a new connection
func NewConnection(ws *websocket.Conn, server *Server) *Connection {
	c := &Connection{
		ws:     ws,
		server: server,
		send:   make(chan []byte, 256),
		inbox:  make(chan network.ClientMessage, 64),
		done:   make(chan struct{}),
	}
	timeout := time.Duration(server.config.Server.LayoutTimeoutMs) * time.Millisecond
	c.presenter = newRemotePresenter(c.SendMessage, c.done, timeout)
	return c
}

// Handle manages the connection lifecycle
func (c *Connection) Handle() {
	// Set up connection parameters
	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	c.server.wg.Add(1)
	go func() {
		defer c.server.wg.Done()
		c.run()
	}()

	// Start read and write pumps
	go c.writePump()
	c.readPump() // Blocking
}

// readPump pumps messages from the WebSocket connection to the inventory
// goroutine. Layout replies go straight to the presenter, which may be
// blocked waiting for them.
func (c *Connection) readPump() {
	defer func() {
		close(c.inbox)
		c.Close()
	}()

	for {
		// Read message
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			break
		}

		// Parse message
		var clientMsg network.ClientMessage
		if err := json.Unmarshal(message, &clientMsg); err != nil {
			log.Printf("Failed to parse client message: %v", err)
			c.SendError("invalid_message", "Failed to parse message")
			continue
		}

		if clientMsg.Type == network.MsgTypeLayoutSettled {
			c.deliverLayout(clientMsg.Payload)
			continue
		}

		select {
		case c.inbox <- clientMsg:
		case <-c.done:
			return
		}
	}
}

func (c *Connection) deliverLayout(payload json.RawMessage) {
	var settled network.LayoutSettledPayload
	if err := json.Unmarshal(payload, &settled); err != nil {
		c.SendError("invalid_layout", "Invalid layout reply")
		return
	}
	c.presenter.deliver(settled)
}

// writePump pumps messages from the send channel to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("WebSocket write error: %v", err)
				return
			}

		case <-ticker.C:
			// Send ping
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			c.ws.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case <-c.server.ctx.Done():
			// Server shutting down
			return
		}
	}
}

// run is the inventory goroutine. Every inventory call happens here; layout
// commands queued while handling a message are flushed after it.
func (c *Connection) run() {
	interval := time.Duration(c.server.config.Server.SaveIntervalSec) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer c.leave()

	for {
		select {
		case msg, ok := <-c.inbox:
			if !ok {
				return
			}
			c.handleMessage(&msg)
			c.presenter.Flush()
		case <-ticker.C:
			if c.inventory != nil {
				c.saveInventory()
			}
		}
	}
}

// handleMessage routes messages to appropriate handlers
func (c *Connection) handleMessage(msg *network.ClientMessage) {
	switch msg.Type {
	case network.MsgTypeJoin:
		c.handleJoin()

	case network.MsgTypePing:
		c.handlePing()

	case network.MsgTypePointerDown:
		c.handlePointerDown(msg.Payload)

	case network.MsgTypePointerMove:
		c.handlePointerMove(msg.Payload)

	case network.MsgTypePointerUp:
		c.handlePointerUp(msg.Payload)

	case network.MsgTypeRotate:
		c.handleRotate(msg.Payload)

	case network.MsgTypeAddItem:
		c.handleAddItem(msg.Payload)

	case network.MsgTypeRemoveItem:
		c.handleRemoveItem(msg.Payload)

	case network.MsgTypeSellItem:
		c.handleSellItem(msg.Payload)

	case network.MsgTypeOpenContainer:
		c.handleContainer(msg.Payload, true)

	case network.MsgTypeCloseContainer:
		c.handleContainer(msg.Payload, false)

	case network.MsgTypeItemDetails:
		c.handleDetails(msg.Payload)

	case network.MsgTypeSave:
		c.handleSave()

	default:
		log.Printf("Unknown message type: %s", msg.Type)
		c.SendError("unknown_message_type", "Unknown message type")
	}
}

// handleJoin opens the player's inventory and loads its stored state
func (c *Connection) handleJoin() {
	if !c.authenticated || c.player == nil {
		c.SendError("not_authenticated", "Connection not authenticated")
		return
	}
	if c.inventory != nil {
		c.SendError("already_joined", "Inventory already open")
		return
	}

	ctx := c.server.ctx
	owner := c.player.InventoryOwner()

	snap, err := c.server.store.Load(ctx, owner)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Printf("Failed to load inventory for %s: %v", owner, err)
		c.SendError("load_failed", "Failed to load inventory")
		return
	}

	if err := c.server.session.AddPlayer(c.player, c); err != nil {
		c.SendError("join_failed", err.Error())
		return
	}
	c.player.Connected = true
	c.player.ConnectedAt = time.Now()

	cfg := c.server.inventoryConfig
	cfg.Owner = owner
	c.server.bus.Subscribe(owner, func(ev inventory.Event) {
		c.SendMessage(&network.ServerMessage{Type: network.MsgTypeEvent, Payload: ev})
	})
	c.inventory = inventory.NewService(cfg, c.server.catalog, c.presenter, c.server.bus)

	res, err := c.inventory.Restore(ctx, snap)
	if err != nil {
		// Drop the half-loaded inventory so it never overwrites the stored one
		log.Printf("Failed to restore inventory for %s: %v", owner, err)
		c.server.bus.Unsubscribe(owner)
		c.server.session.RemovePlayer(c.player.ID, c)
		c.inventory = nil
		c.SendError("load_failed", err.Error())
		return
	}

	c.SendMessage(&network.ServerMessage{
		Type: network.MsgTypeWelcome,
		Payload: network.WelcomePayload{
			PlayerID: c.player.ID,
			Username: c.player.Username,
			Columns:  cfg.Columns,
			Rows:     cfg.Rows,
			SlotSize: cfg.SlotSize.X(),
			Loaded:   len(res.Placed),
			Rejected: len(res.Rejected),
		},
	})

	log.Printf("Player %s opened inventory %s (%d loaded, %d rejected)",
		c.player.Username, owner, len(res.Placed), len(res.Rejected))
}

// leave persists the inventory and unregisters the player
func (c *Connection) leave() {
	if c.inventory == nil {
		return
	}
	c.saveInventory()
	c.server.bus.Unsubscribe(c.inventory.Owner())
	c.server.session.RemovePlayer(c.player.ID, c)
}

func (c *Connection) saveInventory() error {
	ctx, cancel := context.WithTimeout(context.Background(), saveWait)
	defer cancel()

	owner := c.inventory.Owner()
	if err := c.server.store.Save(ctx, owner, c.inventory.Snapshot()); err != nil {
		log.Printf("Failed to save inventory for %s: %v", owner, err)
		return err
	}
	return nil
}

// joined returns the inventory or tells the client to join first
func (c *Connection) joined() (*inventory.Service, bool) {
	if c.inventory == nil {
		c.SendError("not_joined", "Join before using the inventory")
		return nil, false
	}
	return c.inventory, true
}

func (c *Connection) handlePointerDown(payload json.RawMessage) {
	inv, ok := c.joined()
	if !ok {
		return
	}
	var p network.PointerPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.SendError("invalid_pointer", "Invalid pointer payload")
		return
	}
	if err := inv.PointerDown(c.server.ctx, p.InstanceID, buttonFromWire(p.Button)); err != nil {
		c.SendError("pointer_down_failed", err.Error())
	}
}

func (c *Connection) handlePointerMove(payload json.RawMessage) {
	inv, ok := c.joined()
	if !ok {
		return
	}
	var p network.PointerMovePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.SendError("invalid_pointer", "Invalid pointer payload")
		return
	}
	preview, err := inv.PointerMove(geom.Vec{p.X, p.Y})
	if errors.Is(err, drag.ErrNotDragging) {
		return
	}
	c.sendPreview(preview)
}

func (c *Connection) handlePointerUp(payload json.RawMessage) {
	inv, ok := c.joined()
	if !ok {
		return
	}
	var p network.PointerPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.SendError("invalid_pointer", "Invalid pointer payload")
		return
	}
	res, err := inv.PointerUp(c.server.ctx, p.InstanceID, buttonFromWire(p.Button))
	if errors.Is(err, drag.ErrNotDragging) {
		return
	}
	if err != nil {
		c.SendError("pointer_up_failed", err.Error())
		return
	}
	c.SendMessage(&network.ServerMessage{Type: network.MsgTypeDragResult, Payload: dragResultPayload(res)})
}

func (c *Connection) handleRotate(payload json.RawMessage) {
	inv, ok := c.joined()
	if !ok {
		return
	}
	var p network.ItemPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.SendError("invalid_item", "Invalid item payload")
		return
	}
	preview, err := inv.RotateRequested(p.InstanceID)
	if err != nil {
		c.SendError("rotate_failed", err.Error())
		return
	}
	c.sendPreview(preview)
}

func (c *Connection) handleAddItem(payload json.RawMessage) {
	inv, ok := c.joined()
	if !ok {
		return
	}
	var p network.AddItemPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.SendError("invalid_item", "Invalid item payload")
		return
	}
	if _, err := inv.AddItemByID(c.server.ctx, item.ID(p.DefinitionID)); err != nil {
		c.SendError("add_failed", err.Error())
	}
}

func (c *Connection) handleRemoveItem(payload json.RawMessage) {
	inv, ok := c.joined()
	if !ok {
		return
	}
	e, ok := c.findItem(inv, payload)
	if !ok {
		return
	}
	if err := inv.RemoveItem(e); err != nil {
		c.SendError("remove_failed", err.Error())
	}
}

func (c *Connection) handleSellItem(payload json.RawMessage) {
	inv, ok := c.joined()
	if !ok {
		return
	}
	e, ok := c.findItem(inv, payload)
	if !ok {
		return
	}
	price, err := inv.SellItem(e)
	if err != nil {
		c.SendError("sell_failed", err.Error())
		return
	}
	c.SendMessage(&network.ServerMessage{
		Type:    network.MsgTypeSold,
		Payload: network.SoldPayload{InstanceID: e.Item.ID, Price: price},
	})
}

func (c *Connection) handleContainer(payload json.RawMessage, open bool) {
	inv, ok := c.joined()
	if !ok {
		return
	}
	e, ok := c.findItem(inv, payload)
	if !ok {
		return
	}
	var err error
	if open {
		_, err = inv.OpenContainer(c.server.ctx, e)
	} else {
		err = inv.CloseContainer(e)
	}
	if err != nil {
		c.SendError("container_failed", err.Error())
	}
}

func (c *Connection) handleDetails(payload json.RawMessage) {
	inv, ok := c.joined()
	if !ok {
		return
	}
	var p network.ItemPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.SendError("invalid_item", "Invalid item payload")
		return
	}
	details, err := inv.Details(p.InstanceID)
	if err != nil {
		c.SendError("not_found", err.Error())
		return
	}
	c.SendMessage(&network.ServerMessage{Type: network.MsgTypeDetails, Payload: details})
}

func (c *Connection) handleSave() {
	if _, ok := c.joined(); !ok {
		return
	}
	if err := c.saveInventory(); err != nil {
		c.SendError("save_failed", "Failed to save inventory")
		return
	}
	c.SendMessage(&network.ServerMessage{
		Type:    network.MsgTypeSaved,
		Payload: map[string]interface{}{"timestamp": time.Now().Unix()},
	})
}

// handlePing handles ping requests
func (c *Connection) handlePing() {
	c.SendMessage(&network.ServerMessage{
		Type:    network.MsgTypePong,
		Payload: map[string]interface{}{"timestamp": time.Now().Unix()},
	})
}

func (c *Connection) findItem(inv *inventory.Service, payload json.RawMessage) (*grid.Entry, bool) {
	var p network.ItemPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.SendError("invalid_item", "Invalid item payload")
		return nil, false
	}
	e, ok := inv.Find(p.InstanceID)
	if !ok {
		c.SendError("not_found", "No item "+p.InstanceID)
		return nil, false
	}
	return e, true
}

func (c *Connection) sendPreview(p placement.Preview) {
	c.SendMessage(&network.ServerMessage{Type: network.MsgTypePreview, Payload: previewPayload(p)})
}

// SendMessage sends a message to the client
func (c *Connection) SendMessage(msg *network.ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Failed to marshal message: %v", err)
		return
	}

	select {
	case c.send <- data:
	case <-c.done:
	default:
		log.Printf("Send buffer full, dropping message")
	}
}

// SendError sends an error message to the client
func (c *Connection) SendError(code, message string) {
	c.SendMessage(&network.ServerMessage{
		Type: network.MsgTypeError,
		Payload: network.ErrorPayload{
			Code:    code,
			Message: message,
		},
	})
}

// Close ends the connection. It is safe to call more than once.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.ws.Close()
	})
}

func buttonFromWire(b int) drag.Button {
	if b == network.ButtonSecondary {
		return drag.ButtonSecondary
	}
	return drag.ButtonPrimary
}

func previewPayload(p placement.Preview) network.PreviewPayload {
	out := network.PreviewPayload{
		Outcome: p.Outcome.String(),
		TargetX: p.Target.X,
		TargetY: p.Target.Y,
	}
	if p.Container != nil {
		out.Container = p.Container.Item.ID
	}
	return out
}

func dragResultPayload(r drag.Result) network.DragResultPayload {
	out := network.DragResultPayload{Outcome: r.Outcome.String()}
	if r.Entry != nil {
		out.InstanceID = r.Entry.Item.ID
	}
	if r.Container != nil {
		out.Container = r.Container.Item.ID
	}
	if r.Err != nil {
		out.Reason = r.Err.Error()
	}
	return out
}
