// Package sim is an in-memory world.Gateway. It backs the supervisory tests
// and the offline `autocraft sim` mode; failure hooks let callers script
// unreachable blocks, vanishing targets and slow travel.
package sim

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"autocraft/internal/logging"
	"autocraft/internal/world"
)

const selfID = 1

// Navigator decides whether a Goto succeeds. Returning nil lets travel proceed.
type Navigator func(goal world.Goal) error

// DigHook runs before a dig completes. Returning an error fails the dig.
type DigHook func(b world.Block) error

// Option configures a World.
type Option func(*World)

// WithTravelTime makes every Goto take d.
func WithTravelTime(d time.Duration) Option {
	return func(w *World) { w.travelTime = d }
}

// WithDigTime makes every Dig take d.
func WithDigTime(d time.Duration) Option {
	return func(w *World) { w.digTime = d }
}

// WithChatHook observes every chat line the agent sends.
func WithChatHook(fn func(string)) Option {
	return func(w *World) { w.onChat = fn }
}

// World is a deterministic, mutex-guarded world model.
type World struct {
	mu sync.Mutex

	username string
	spawned  bool
	health   float64
	food     float64
	self     world.Entity
	biome    string
	time     int

	blocks      map[world.Vec3]string
	knownBlocks map[string]bool
	knownItems  map[string]bool
	recipes     map[string]bool
	inventory   map[string]int
	invOrder    []string
	held        string
	usingHeld   bool

	entities map[int]*world.Entity
	players  map[string]int
	nextID   int

	goal        *world.Goal
	goalDynamic bool

	navigate   Navigator
	digHook    DigHook
	travelTime time.Duration
	digTime    time.Duration
	onChat     func(string)

	events chan world.Event
	closed bool

	chats     []string
	attacks   []int
	gotos     []world.Goal
	digs      []world.Block
	looks     []world.Vec3
	stopMoves int
	stopDigs  int
	activated int
}

// New creates an unspawned world for username.
func New(username string, opts ...Option) *World {
	w := &World{
		username:    username,
		health:      20,
		food:        20,
		biome:       "plains",
		self:        world.Entity{ID: selfID, Name: username, Kind: world.KindPlayer, Height: 1.62, Valid: true},
		blocks:      make(map[world.Vec3]string),
		knownBlocks: map[string]bool{world.AirBlock: true},
		knownItems:  make(map[string]bool),
		recipes:     make(map[string]bool),
		inventory:   make(map[string]int),
		entities:    make(map[int]*world.Entity),
		players:     make(map[string]int),
		nextID:      selfID + 1,
		events:      make(chan world.Event, 256),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

var _ world.Gateway = (*World)(nil)

// =============================================================================
// SCRIPTING
// =============================================================================

// Spawn marks the agent as in-world and emits a spawn event.
func (w *World) Spawn(health float64) {
	w.mu.Lock()
	w.spawned = true
	w.health = health
	w.self.Valid = true
	w.mu.Unlock()
	w.emit(world.Event{Type: world.EventSpawn, Health: health})
}

// SetHealth changes health and emits a health event.
func (w *World) SetHealth(h float64) {
	w.mu.Lock()
	w.health = h
	w.mu.Unlock()
	w.emit(world.Event{Type: world.EventHealth, Health: h})
}

// Health returns current health.
func (w *World) Health() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.health
}

// Say emits a chat message from user.
func (w *World) Say(user, text string) {
	w.emit(world.Event{Type: world.EventChat, Username: user, Message: text})
}

// Disconnect despawns the agent and emits a disconnect event.
func (w *World) Disconnect(reason string) {
	w.mu.Lock()
	w.spawned = false
	w.mu.Unlock()
	w.emit(world.Event{Type: world.EventDisconnect, Reason: reason})
}

// Close ends the event stream.
func (w *World) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.closed {
		w.closed = true
		close(w.events)
	}
}

func (w *World) emit(ev world.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	select {
	case w.events <- ev:
	default:
		logging.Get(logging.CategoryWorld).Warn("sim: event buffer full, dropping %s", ev.Type)
	}
}

// SetSelfPosition teleports the agent.
func (w *World) SetSelfPosition(pos world.Vec3) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.self.Position = pos
}

// SelfPosition returns the agent position.
func (w *World) SelfPosition() world.Vec3 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.self.Position
}

// SetBlock places a block; placing air clears the position.
func (w *World) SetBlock(pos world.Vec3, name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	key := pos.Floored()
	if name == "" || name == world.AirBlock {
		delete(w.blocks, key)
		return
	}
	w.blocks[key] = name
	w.knownBlocks[name] = true
	w.knownItems[name] = true
}

// RegisterBlocks makes block names known without placing any.
func (w *World) RegisterBlocks(names ...string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, n := range names {
		w.knownBlocks[n] = true
		w.knownItems[n] = true
	}
}

// RegisterItems makes item names known.
func (w *World) RegisterItems(names ...string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, n := range names {
		w.knownItems[n] = true
	}
}

// AddRecipe makes item craftable (and known).
func (w *World) AddRecipe(item string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.knownItems[item] = true
	w.recipes[item] = true
}

// Give adds count of item to the inventory.
func (w *World) Give(item string, count int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.addItem(item, count)
}

func (w *World) addItem(item string, count int) {
	if _, ok := w.inventory[item]; !ok {
		w.invOrder = append(w.invOrder, item)
	}
	w.inventory[item] += count
	w.knownItems[item] = true
}

func (w *World) removeItem(item string, count int) {
	w.inventory[item] -= count
	if w.inventory[item] > 0 {
		return
	}
	delete(w.inventory, item)
	for i, n := range w.invOrder {
		if n == item {
			w.invOrder = append(w.invOrder[:i], w.invOrder[i+1:]...)
			break
		}
	}
	if w.held == item {
		w.held = ""
	}
}

// Count returns how many of item the agent holds.
func (w *World) Count(item string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.inventory[item]
}

// Held returns the equipped item name.
func (w *World) Held() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.held
}

// AddEntity adds an entity and returns its id.
func (w *World) AddEntity(e world.Entity) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	e.ID = w.nextID
	w.nextID++
	e.Valid = true
	w.entities[e.ID] = &e
	return e.ID
}

// AddPlayer adds a visible player entity.
func (w *World) AddPlayer(name string, pos world.Vec3) int {
	id := w.AddEntity(world.Entity{Name: name, Kind: world.KindPlayer, Position: pos, Height: 1.62})
	w.mu.Lock()
	w.players[name] = id
	w.mu.Unlock()
	return id
}

// MoveEntity repositions an entity.
func (w *World) MoveEntity(id int, pos world.Vec3) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if e, ok := w.entities[id]; ok {
		e.Position = pos
	}
}

// RemoveEntity despawns an entity.
func (w *World) RemoveEntity(id int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.entities, id)
	for name, pid := range w.players {
		if pid == id {
			w.players[name] = 0
		}
	}
}

// SetNavigator installs a Goto outcome hook.
func (w *World) SetNavigator(fn Navigator) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.navigate = fn
}

// SetDigHook installs a Dig outcome hook.
func (w *World) SetDigHook(fn DigHook) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.digHook = fn
}

// SetUsingHeldItem simulates a swing or item use in progress.
func (w *World) SetUsingHeldItem(v bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.usingHeld = v
}

// =============================================================================
// RECORDINGS
// =============================================================================

// Chats returns every chat line sent so far.
func (w *World) Chats() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.chats...)
}

// SaidContaining reports whether any chat line contains substr.
func (w *World) SaidContaining(substr string) bool {
	for _, c := range w.Chats() {
		if strings.Contains(c, substr) {
			return true
		}
	}
	return false
}

// Attacks returns the ids struck so far.
func (w *World) Attacks() []int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]int(nil), w.attacks...)
}

// Gotos returns every Goto goal requested so far.
func (w *World) Gotos() []world.Goal {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]world.Goal(nil), w.gotos...)
}

// Digs returns every completed dig.
func (w *World) Digs() []world.Block {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]world.Block(nil), w.digs...)
}

// Looks returns every look-at point.
func (w *World) Looks() []world.Vec3 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]world.Vec3(nil), w.looks...)
}

// CurrentGoal returns the goal set by SetGoal, if any.
func (w *World) CurrentGoal() (world.Goal, bool, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.goal == nil {
		return world.Goal{}, false, false
	}
	return *w.goal, w.goalDynamic, true
}

// StopCounts returns how often movement and digging were stopped.
func (w *World) StopCounts() (moves, digs int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stopMoves, w.stopDigs
}

// Activations returns how often the held item was used.
func (w *World) Activations() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.activated
}

// =============================================================================
// PERCEPTION
// =============================================================================

func (w *World) Username() string { return w.username }

func (w *World) Events() <-chan world.Event { return w.events }

func (w *World) Snapshot() (*world.Snapshot, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.spawned {
		return nil, false
	}
	state := world.State{
		Username:  w.username,
		Self:      w.self,
		Health:    w.health,
		Food:      w.food,
		Biome:     w.biome,
		TimeOfDay: w.time,
		Players:   make(map[string]*world.Entity),
		Entities:  w.entityList(),
	}
	for _, name := range w.invOrder {
		state.Inventory = append(state.Inventory, world.Item{Name: name, Count: w.inventory[name]})
	}
	if w.held != "" {
		state.HeldItem = &world.Item{Name: w.held, Count: w.inventory[w.held]}
	}
	for name, id := range w.players {
		var vis *world.Entity
		if e, ok := w.entities[id]; ok {
			cp := *e
			vis = &cp
		}
		state.Players[name] = vis
	}
	return world.NewSnapshot(state), true
}

func (w *World) Self() (world.Entity, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.spawned {
		return world.Entity{}, false
	}
	return w.self, true
}

func (w *World) Entity(id int) (world.Entity, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if id == selfID && w.spawned {
		return w.self, true
	}
	e, ok := w.entities[id]
	if !ok {
		return world.Entity{}, false
	}
	return *e, true
}

func (w *World) Entities() []world.Entity {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.entityList()
}

func (w *World) entityList() []world.Entity {
	out := make([]world.Entity, 0, len(w.entities)+1)
	if w.spawned {
		out = append(out, w.self)
	}
	ids := make([]int, 0, len(w.entities))
	for id := range w.entities {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		out = append(out, *w.entities[id])
	}
	return out
}

func (w *World) Player(name string) (world.Entity, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for pname, id := range w.players {
		if !strings.EqualFold(pname, name) {
			continue
		}
		if e, ok := w.entities[id]; ok {
			return *e, true
		}
	}
	return world.Entity{}, false
}

func (w *World) BlockAt(pos world.Vec3) (world.Block, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	key := pos.Floored()
	name, ok := w.blocks[key]
	if !ok {
		name = world.AirBlock
	}
	return world.Block{Name: name, Position: key}, true
}

func (w *World) FindBlock(q world.BlockQuery) (world.Block, bool) {
	w.mu.Lock()
	origin := w.self.Position
	var candidates []world.Block
	for pos, name := range w.blocks {
		if name != q.Name {
			continue
		}
		if q.MaxDistance > 0 && origin.DistanceTo(pos) > q.MaxDistance {
			continue
		}
		candidates = append(candidates, world.Block{Name: name, Position: pos})
	}
	w.mu.Unlock()

	sort.Slice(candidates, func(i, j int) bool {
		di, dj := origin.DistanceTo(candidates[i].Position), origin.DistanceTo(candidates[j].Position)
		if di != dj {
			return di < dj
		}
		a, b := candidates[i].Position, candidates[j].Position
		if a.X != b.X {
			return a.X < b.X
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.Z < b.Z
	})
	for _, c := range candidates {
		if q.Match == nil || q.Match(c) {
			return c, true
		}
	}
	return world.Block{}, false
}

func (w *World) KnownBlock(name string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.knownBlocks[name]
}

func (w *World) KnownItem(name string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.knownItems[name]
}

func (w *World) Inventory() []world.Item {
	w.mu.Lock()
	defer w.mu.Unlock()
	items := make([]world.Item, 0, len(w.invOrder))
	for _, name := range w.invOrder {
		items = append(items, world.Item{Name: name, Count: w.inventory[name]})
	}
	return items
}

func (w *World) IsUsingHeldItem() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.usingHeld
}

// =============================================================================
// ACTIONS
// =============================================================================

func (w *World) Goto(ctx context.Context, goal world.Goal) error {
	w.mu.Lock()
	if !w.spawned {
		w.mu.Unlock()
		return world.ErrNotSpawned
	}
	w.gotos = append(w.gotos, goal)
	nav, travel := w.navigate, w.travelTime
	w.mu.Unlock()

	if nav != nil {
		if err := nav(goal); err != nil {
			return fmt.Errorf("goto %s: %w", goal, err)
		}
	}
	if err := w.wait(ctx, travel); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	switch goal.Kind {
	case world.GoalGetToBlock:
		w.self.Position = goal.Pos.Offset(0, 1, 0)
	default:
		w.self.Position = goal.Pos
	}
	return nil
}

func (w *World) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (w *World) SetGoal(goal world.Goal, dynamic bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	g := goal
	w.goal = &g
	w.goalDynamic = dynamic
}

func (w *World) StopMovement() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.goal = nil
	w.stopMoves++
}

func (w *World) LookAt(ctx context.Context, point world.Vec3) error {
	w.mu.Lock()
	w.looks = append(w.looks, point)
	w.mu.Unlock()
	return ctx.Err()
}

func (w *World) Attack(entityID int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.attacks = append(w.attacks, entityID)
}

func (w *World) Dig(ctx context.Context, b world.Block) error {
	w.mu.Lock()
	key := b.Position.Floored()
	if w.blocks[key] != b.Name {
		w.mu.Unlock()
		return fmt.Errorf("no %s at %s: %w", b.Name, key, world.ErrDigFailed)
	}
	hook, dig := w.digHook, w.digTime
	w.mu.Unlock()

	if hook != nil {
		if err := hook(b); err != nil {
			return fmt.Errorf("dig %s: %w", b.Name, err)
		}
	}
	if err := w.wait(ctx, dig); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.blocks[key] != b.Name {
		return fmt.Errorf("%s at %s vanished mid-dig: %w", b.Name, key, world.ErrDigFailed)
	}
	delete(w.blocks, key)
	w.addItem(b.Name, 1)
	w.digs = append(w.digs, world.Block{Name: b.Name, Position: key})
	return nil
}

func (w *World) StopDigging() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopDigs++
}

func (w *World) Craft(ctx context.Context, item string, count int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if !w.knownItems[item] {
		return fmt.Errorf("craft %s: %w", item, world.ErrUnknownItem)
	}
	if !w.recipes[item] {
		return fmt.Errorf("craft %s: %w", item, world.ErrNoRecipe)
	}
	w.addItem(item, count)
	return nil
}

func (w *World) Equip(ctx context.Context, item, slot string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if w.inventory[item] <= 0 {
		return fmt.Errorf("equip %s to %s: %w", item, slot, world.ErrNotInInventory)
	}
	w.held = item
	return nil
}

func (w *World) Toss(ctx context.Context, item string, count int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	have := w.inventory[item]
	if have <= 0 {
		return fmt.Errorf("toss %s: %w", item, world.ErrNotInInventory)
	}
	if count > have || count <= 0 {
		count = have
	}
	w.removeItem(item, count)
	return nil
}

func (w *World) ActivateItem() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.held == "" {
		return fmt.Errorf("nothing in hand to use")
	}
	w.activated++
	return nil
}

func (w *World) Chat(text string) {
	w.mu.Lock()
	w.chats = append(w.chats, text)
	hook := w.onChat
	w.mu.Unlock()
	logging.WorldDebug("sim chat: %s", text)
	if hook != nil {
		hook(text)
	}
}
