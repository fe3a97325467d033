package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/hotelpms/hotel-backend/internal/database"
	"github.com/hotelpms/hotel-backend/internal/models"
	"github.com/hotelpms/hotel-backend/pkg/portone"
)

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// fakeRoomStore is an in-memory RoomStore
type fakeRoomStore struct {
	mu    sync.Mutex
	rooms map[uuid.UUID]*models.Room
	inUse map[uuid.UUID]bool
}

func newFakeRoomStore() *fakeRoomStore {
	return &fakeRoomStore{rooms: map[uuid.UUID]*models.Room{}, inUse: map[uuid.UUID]bool{}}
}

func (f *fakeRoomStore) add(number, roomType string, price int64) *models.Room {
	room := &models.Room{
		ID:         uuid.New(),
		RoomNumber: number,
		RoomType:   roomType,
		Price:      price,
		Status:     models.RoomStatusAvailable,
	}
	f.mu.Lock()
	f.rooms[room.ID] = room
	f.mu.Unlock()
	return room
}

func (f *fakeRoomStore) get(id uuid.UUID) *models.Room {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rooms[id]
}

func (f *fakeRoomStore) Create(ctx context.Context, room *models.Room) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rooms {
		if r.RoomNumber == room.RoomNumber {
			return fmt.Errorf("failed to create room: %w", database.ErrDuplicate)
		}
	}
	if room.ID == uuid.Nil {
		room.ID = uuid.New()
	}
	cp := *room
	f.rooms[room.ID] = &cp
	return nil
}

func (f *fakeRoomStore) CreateBatch(ctx context.Context, rooms []*models.Room) error {
	for _, room := range rooms {
		if err := f.Create(ctx, room); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeRoomStore) Update(ctx context.Context, room *models.Room) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rooms[room.ID]; !ok {
		return fmt.Errorf("failed to update room: %w", database.ErrNotFound)
	}
	for _, r := range f.rooms {
		if r.ID != room.ID && r.RoomNumber == room.RoomNumber {
			return fmt.Errorf("failed to update room: %w", database.ErrDuplicate)
		}
	}
	cp := *room
	f.rooms[room.ID] = &cp
	return nil
}

func (f *fakeRoomStore) UpdateStatus(ctx context.Context, id uuid.UUID, status models.RoomStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	room, ok := f.rooms[id]
	if !ok {
		return fmt.Errorf("failed to update room status: %w", database.ErrNotFound)
	}
	room.Status = status
	return nil
}

func (f *fakeRoomStore) Delete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rooms[id]; !ok {
		return fmt.Errorf("failed to delete room: %w", database.ErrNotFound)
	}
	if f.inUse[id] {
		return fmt.Errorf("failed to delete room: %w", database.ErrInUse)
	}
	delete(f.rooms, id)
	return nil
}

func (f *fakeRoomStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if room, ok := f.rooms[id]; ok {
		cp := *room
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeRoomStore) GetByNumber(ctx context.Context, number string) (*models.Room, error) {
	return f.find(func(r *models.Room) bool { return r.RoomNumber == number }), nil
}

func (f *fakeRoomStore) find(match func(*models.Room) bool) *models.Room {
	rooms := f.filter(match)
	if len(rooms) == 0 {
		return nil
	}
	return rooms[0]
}

func (f *fakeRoomStore) filter(match func(*models.Room) bool) []*models.Room {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.Room{}
	for _, r := range f.rooms {
		if match(r) {
			cp := *r
			out = append(out, &cp)
		}
	}
	// map order is random; callers must not depend on it
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}

func (f *fakeRoomStore) List(ctx context.Context) ([]*models.Room, error) {
	return f.filter(func(*models.Room) bool { return true }), nil
}

func (f *fakeRoomStore) ListByType(ctx context.Context, roomType string) ([]*models.Room, error) {
	return f.filter(func(r *models.Room) bool { return r.RoomType == roomType }), nil
}

func (f *fakeRoomStore) ListByStatus(ctx context.Context, status models.RoomStatus) ([]*models.Room, error) {
	return f.filter(func(r *models.Room) bool { return r.Status == status }), nil
}

func (f *fakeRoomStore) ListByPriceRange(ctx context.Context, min, max int64) ([]*models.Room, error) {
	return f.filter(func(r *models.Room) bool { return r.Price >= min && r.Price <= max }), nil
}

func (f *fakeRoomStore) Count(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rooms), nil
}

// fakeReservationStore is an in-memory ReservationStore that enforces the
// same overlap rule as the database: active stays of one room never intersect.
type fakeReservationStore struct {
	mu           sync.Mutex
	rooms        *fakeRoomStore
	reservations map[uuid.UUID]*models.Reservation
	bookAttempts []uuid.UUID
	// paidFor holds reservations a payment row points at; Delete refuses them
	paidFor      map[uuid.UUID]bool
	// beforeCancel runs inside CancelUnpaid before the PAID check
	beforeCancel func(res *models.Reservation)
}

func newFakeReservationStore(rooms *fakeRoomStore) *fakeReservationStore {
	return &fakeReservationStore{
		rooms:        rooms,
		reservations: map[uuid.UUID]*models.Reservation{},
		paidFor:      map[uuid.UUID]bool{},
	}
}

func (f *fakeReservationStore) seed(roomID, userID uuid.UUID, checkIn, checkOut string, status models.ReservationStatus) *models.Reservation {
	res := &models.Reservation{
		ID:            uuid.New(),
		UserID:        userID,
		RoomID:        roomID,
		CheckIn:       models.MustParseDate(checkIn),
		CheckOut:      models.MustParseDate(checkOut),
		People:        2,
		Status:        status,
		PaymentStatus: models.ReservationPaymentPending,
	}
	f.mu.Lock()
	f.reservations[res.ID] = res
	f.mu.Unlock()
	return res
}

func (f *fakeReservationStore) get(id uuid.UUID) *models.Reservation {
	f.mu.Lock()
	defer f.mu.Unlock()
	if res, ok := f.reservations[id]; ok {
		cp := *res
		return &cp
	}
	return nil
}

func (f *fakeReservationStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reservations)
}

func (f *fakeReservationStore) write(res *models.Reservation, excludeID uuid.UUID, insert bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bookAttempts = append(f.bookAttempts, res.RoomID)

	room := f.rooms.get(res.RoomID)
	if room == nil {
		return fmt.Errorf("failed to lock room: %w", database.ErrNotFound)
	}
	if !insert {
		if _, ok := f.reservations[res.ID]; !ok {
			return fmt.Errorf("failed to update reservation: %w", database.ErrNotFound)
		}
	}

	for _, other := range f.reservations {
		if other.ID == excludeID || other.RoomID != res.RoomID || !other.IsActive() {
			continue
		}
		if other.Stay().Overlaps(res.Stay()) {
			return database.ErrOverlap
		}
	}

	if insert && res.ID == uuid.Nil {
		res.ID = uuid.New()
	}
	res.RoomNumber = room.RoomNumber
	res.RoomType = room.RoomType
	cp := *res
	f.reservations[res.ID] = &cp
	return nil
}

func (f *fakeReservationStore) Book(ctx context.Context, res *models.Reservation) error {
	return f.write(res, uuid.Nil, true)
}

func (f *fakeReservationStore) Rebook(ctx context.Context, res *models.Reservation) error {
	return f.write(res, res.ID, false)
}

func (f *fakeReservationStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	return f.get(id), nil
}

func (f *fakeReservationStore) list(match func(*models.Reservation) bool) []*models.Reservation {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.Reservation{}
	for _, r := range f.reservations {
		if match(r) {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out
}

func (f *fakeReservationStore) GetByUser(ctx context.Context, userID uuid.UUID) ([]*models.Reservation, error) {
	return f.list(func(r *models.Reservation) bool { return r.UserID == userID }), nil
}

func (f *fakeReservationStore) GetAll(ctx context.Context) ([]*models.Reservation, error) {
	return f.list(func(*models.Reservation) bool { return true }), nil
}

func (f *fakeReservationStore) GetByDate(ctx context.Context, date models.Date) ([]*models.Reservation, error) {
	// same predicate as the SQL: check_in <= date AND check_out > date
	return f.list(func(r *models.Reservation) bool {
		return !r.CheckIn.After(date) && r.CheckOut.After(date)
	}), nil
}

func (f *fakeReservationStore) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ReservationStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	res, ok := f.reservations[id]
	if !ok {
		return fmt.Errorf("failed to update reservation status: %w", database.ErrNotFound)
	}
	res.Status = status
	return nil
}

func (f *fakeReservationStore) UpdateStatuses(ctx context.Context, id uuid.UUID, status models.ReservationStatus, paymentStatus models.ReservationPaymentStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	res, ok := f.reservations[id]
	if !ok {
		return fmt.Errorf("failed to update reservation statuses: %w", database.ErrNotFound)
	}
	res.Status = status
	res.PaymentStatus = paymentStatus
	return nil
}

func (f *fakeReservationStore) markPaid(id uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paidFor[id] = true
}

func (f *fakeReservationStore) CancelUnpaid(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	res, ok := f.reservations[id]
	if !ok {
		return database.ErrStaleState
	}
	if f.beforeCancel != nil {
		f.beforeCancel(res)
	}
	if res.PaymentStatus == models.ReservationPaymentPaid {
		return database.ErrStaleState
	}
	res.Status = models.ReservationStatusCancelled
	res.PaymentStatus = models.ReservationPaymentFailed
	return nil
}

func (f *fakeReservationStore) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.paidFor[id] {
		return false, fmt.Errorf("failed to delete reservation: %w", database.ErrInUse)
	}
	_, ok := f.reservations[id]
	delete(f.reservations, id)
	return ok, nil
}

// fakeUserStore is an in-memory UserStore
type fakeUserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[uuid.UUID]*models.User{}}
}

func (f *fakeUserStore) add(username string) *models.User {
	user := &models.User{
		ID:       uuid.New(),
		Username: username,
		Email:    username + "@example.com",
		Name:     "Guest " + username,
		Roles:    []string{models.RoleUser},
		Enabled:  true,
	}
	f.mu.Lock()
	f.users[user.ID] = user
	f.mu.Unlock()
	return user
}

func (f *fakeUserStore) get(id uuid.UUID) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		cp := *u
		return &cp
	}
	return nil
}

func (f *fakeUserStore) Create(ctx context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == user.Username || u.Email == user.Email {
			return fmt.Errorf("failed to create user: %w", database.ErrDuplicate)
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	cp := *user
	f.users[user.ID] = &cp
	return nil
}

func (f *fakeUserStore) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return f.get(id), nil
}

func (f *fakeUserStore) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeUserStore) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	u, _ := f.GetByUsername(ctx, username)
	return u != nil, nil
}

func (f *fakeUserStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUserStore) UpdateLastLogin(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		u.LastLoginAt = models.NewNullTime(time.Now())
	}
	return nil
}

func (f *fakeUserStore) UpdateProfile(ctx context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[user.ID]
	if !ok {
		return fmt.Errorf("failed to update profile: %w", database.ErrNotFound)
	}
	u.Name, u.Email, u.Phone = user.Name, user.Email, user.Phone
	return nil
}

func (f *fakeUserStore) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return fmt.Errorf("failed to update password: %w", database.ErrNotFound)
	}
	u.PasswordHash = passwordHash
	return nil
}

func (f *fakeUserStore) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok || u.DeletedAt.Valid {
		return fmt.Errorf("failed to delete user: %w", database.ErrNotFound)
	}
	u.Enabled = false
	u.DeletedAt = models.NewNullTime(at)
	return nil
}

func (f *fakeUserStore) Restore(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok || !u.DeletedAt.Valid {
		return fmt.Errorf("failed to restore user: %w", database.ErrNotFound)
	}
	u.Enabled = true
	u.DeletedAt = models.NullTime{}
	return nil
}

func (f *fakeUserStore) PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, u := range f.users {
		if u.DeletedAt.Valid && u.DeletedAt.Time.Before(cutoff) {
			delete(f.users, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeUserStore) CountDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, u := range f.users {
		if u.DeletedAt.Valid && u.DeletedAt.Time.Before(cutoff) {
			n++
		}
	}
	return n, nil
}

// fakePaymentStore is an in-memory PaymentStore that updates reservations
// the way the transactional repository does
type fakePaymentStore struct {
	mu           sync.Mutex
	reservations *fakeReservationStore
	payments     map[uuid.UUID]*models.Payment
}

func newFakePaymentStore(reservations *fakeReservationStore) *fakePaymentStore {
	return &fakePaymentStore{reservations: reservations, payments: map[uuid.UUID]*models.Payment{}}
}

func (f *fakePaymentStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payments)
}

func (f *fakePaymentStore) CompleteWithReservation(ctx context.Context, payment *models.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	res := f.reservations.get(payment.ReservationID)
	if res == nil {
		return fmt.Errorf("failed to lock reservation: %w", database.ErrNotFound)
	}
	if res.Status == models.ReservationStatusCancelled {
		return database.ErrStaleState
	}
	for _, p := range f.payments {
		if p.MerchantUID == payment.MerchantUID || p.IMPUID == payment.IMPUID {
			return fmt.Errorf("payment already recorded: %w", database.ErrDuplicate)
		}
	}

	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	payment.Status = models.PaymentStatusCompleted
	payment.CreatedAt = time.Now()
	cp := *payment
	f.payments[payment.ID] = &cp

	if err := f.reservations.UpdateStatuses(ctx, res.ID, res.Status, models.ReservationPaymentPaid); err != nil {
		return err
	}
	f.reservations.markPaid(res.ID)
	return nil
}

func (f *fakePaymentStore) MarkCancelled(ctx context.Context, id uuid.UUID, reason string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.payments[id]
	if !ok || p.Status != models.PaymentStatusCompleted {
		return database.ErrStaleState
	}
	p.Status = models.PaymentStatusCancelled
	p.CancelAmount = p.Amount
	p.CancelReason = models.NewNullString(reason)
	p.CancelledAt = models.NewNullTime(at)

	return f.reservations.UpdateStatuses(ctx, p.ReservationID, models.ReservationStatusCancelled, models.ReservationPaymentRefunded)
}

func (f *fakePaymentStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.payments[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (f *fakePaymentStore) GetByMerchantUID(ctx context.Context, merchantUID string) (*models.Payment, error) {
	for _, p := range f.list(func(p *models.Payment) bool { return p.MerchantUID == merchantUID }) {
		return p, nil
	}
	return nil, nil
}

func (f *fakePaymentStore) list(match func(*models.Payment) bool) []*models.Payment {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.Payment{}
	for _, p := range f.payments {
		if match(p) {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out
}

func (f *fakePaymentStore) GetByUser(ctx context.Context, userID uuid.UUID) ([]*models.Payment, error) {
	return f.list(func(p *models.Payment) bool { return p.UserID == userID }), nil
}

func (f *fakePaymentStore) GetByReservation(ctx context.Context, reservationID uuid.UUID) ([]*models.Payment, error) {
	return f.list(func(p *models.Payment) bool { return p.ReservationID == reservationID }), nil
}

// fakeAuditStore records audit entries
type fakeAuditStore struct {
	mu      sync.Mutex
	entries []*models.PaymentAudit
	err     error
}

func (f *fakeAuditStore) Log(ctx context.Context, audit *models.PaymentAudit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	cp := *audit
	f.entries = append(f.entries, &cp)
	return nil
}

func (f *fakeAuditStore) eventTypes() []models.PaymentEventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.PaymentEventType, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e.EventType)
	}
	return out
}

func (f *fakeAuditStore) last() *models.PaymentAudit {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.entries) == 0 {
		return nil
	}
	return f.entries[len(f.entries)-1]
}

func (f *fakeAuditStore) GetByIMPUID(ctx context.Context, impUID string) ([]*models.PaymentAudit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.PaymentAudit{}
	for _, e := range f.entries {
		if e.IMPUID != nil && *e.IMPUID == impUID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeAuditStore) GetByReservation(ctx context.Context, reservationID uuid.UUID) ([]*models.PaymentAudit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.PaymentAudit{}
	for _, e := range f.entries {
		if e.ReservationID != nil && *e.ReservationID == reservationID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeAuditStore) GetAmountMismatches(ctx context.Context, limit int) ([]*models.PaymentAudit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.PaymentAudit{}
	for i := len(f.entries) - 1; i >= 0 && len(out) < limit; i-- {
		e := f.entries[i]
		if e.AmountsMatch != nil && !*e.AmountsMatch {
			out = append(out, e)
		}
	}
	return out, nil
}

// fakeGateway stands in for the PortOne client
type fakeGateway struct {
	mu          sync.Mutex
	payments    map[string]*portone.PaymentInfo
	getErr      error
	cancelErr   error
	cancelCalls int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{payments: map[string]*portone.PaymentInfo{}}
}

func (f *fakeGateway) paid(impUID, merchantUID string, amount int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payments[impUID] = &portone.PaymentInfo{
		IMPUID:      impUID,
		MerchantUID: merchantUID,
		Status:      portone.StatusPaid,
		Amount:      amount,
		PayMethod:   "card",
		PGProvider:  "html5_inicis",
		ApplyNum:    "30012345",
		CardNumber:  "536112*********1",
		CardName:    "KB Kookmin",
	}
}

func (f *fakeGateway) GetPayment(ctx context.Context, impUID string) (*portone.PaymentInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	info, ok := f.payments[impUID]
	if !ok {
		return nil, fmt.Errorf("%w: code -1: no such payment", portone.ErrAPI)
	}
	cp := *info
	return &cp, nil
}

func (f *fakeGateway) CancelPayment(ctx context.Context, impUID string, amount int64, reason string) (*portone.CancelResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelCalls++
	if f.cancelErr != nil {
		return nil, f.cancelErr
	}
	return &portone.CancelResult{IMPUID: impUID, Status: "cancelled", CancelAmount: amount}, nil
}

// fakePublisher records published routing keys
type fakePublisher struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (f *fakePublisher) Publish(ctx context.Context, routingKey string, data interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, routingKey)
	return f.err
}

func (f *fakePublisher) Close() error { return nil }

func (f *fakePublisher) published() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.keys...)
}

// fakeTokenStore is an in-memory RefreshTokenStore keyed by token hash
type fakeTokenStore struct {
	mu     sync.Mutex
	tokens map[string]*models.RefreshToken
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{tokens: map[string]*models.RefreshToken{}}
}

func (f *fakeTokenStore) Store(ctx context.Context, userID uuid.UUID, token string, device models.DeviceInfo, ipAddress, userAgent string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[database.HashToken(token)] = &models.RefreshToken{
		ID:         uuid.New(),
		UserID:     userID,
		TokenHash:  database.HashToken(token),
		DeviceType: models.NewNullString(device.DeviceType),
		IPAddress:  models.NewNullString(ipAddress),
		UserAgent:  models.NewNullString(userAgent),
		CreatedAt:  time.Now(),
		ExpiresAt:  expiresAt,
	}
	return nil
}

func (f *fakeTokenStore) Get(ctx context.Context, token string) (*models.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.tokens[database.HashToken(token)]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeTokenStore) Revoke(ctx context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tokens[database.HashToken(token)]
	if !ok || t.Revoked {
		return fmt.Errorf("failed to revoke token: %w", database.ErrNotFound)
	}
	t.Revoked = true
	return nil
}

func (f *fakeTokenStore) RevokeAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, t := range f.tokens {
		if t.UserID == userID && !t.Revoked {
			t.Revoked = true
			n++
		}
	}
	return n, nil
}

func (f *fakeTokenStore) RevokeMostRecent(ctx context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var newest *models.RefreshToken
	for _, t := range f.tokens {
		if t.UserID == userID && !t.Revoked && (newest == nil || t.CreatedAt.After(newest.CreatedAt)) {
			newest = t
		}
	}
	if newest == nil {
		return fmt.Errorf("failed to revoke most recent token: %w", database.ErrNotFound)
	}
	newest.Revoked = true
	return nil
}

func (f *fakeTokenStore) Cleanup(ctx context.Context, now, revokedBefore time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for k, t := range f.tokens {
		if t.ExpiresAt.Before(now) || t.Revoked {
			delete(f.tokens, k)
			n++
		}
	}
	return n, nil
}

func (f *fakeTokenStore) active(userID uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.tokens {
		if t.UserID == userID && !t.Revoked {
			n++
		}
	}
	return n
}

var errBoom = errors.New("boom")
