package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/stall-rental/internal/model"
	"github.com/iliyamo/stall-rental/internal/queue"
	"github.com/iliyamo/stall-rental/internal/repository"
	"github.com/iliyamo/stall-rental/internal/utils"
)

// memDB is an in-memory stand-in for the MySQL schema: unique keys,
// foreign keys and the ban CHECK constraint behave like the real tables.
// Foreign keys restrict deletes; nothing cascades.
type memDB struct {
	mu       sync.Mutex
	nextID   uint64
	vendors  map[uint64]model.Vendor
	sections map[uint64]model.Section
	stalls   map[uint64]model.Stall
	rentals  map[uint64]model.Rental
	payments map[uint64]model.Payment
	receipts map[string]model.Receipt
	users    map[uint64]model.User

	// beforeBanUpdate runs before UpdateBanPaid checks the version.
	beforeBanUpdate func()
}

func newMemDB() *memDB {
	return &memDB{
		vendors:  map[uint64]model.Vendor{},
		sections: map[uint64]model.Section{},
		stalls:   map[uint64]model.Stall{},
		rentals:  map[uint64]model.Rental{},
		payments: map[uint64]model.Payment{},
		receipts: map[string]model.Receipt{},
		users:    map[uint64]model.User{},
	}
}

// errRestricted mirrors MySQL error 1451: a parent row still has children.
var errRestricted = errors.New("cannot delete a parent row: a foreign key constraint fails")

func (db *memDB) id() uint64 {
	db.nextID++
	return db.nextID
}

type snapshot struct {
	nextID   uint64
	vendors  map[uint64]model.Vendor
	sections map[uint64]model.Section
	stalls   map[uint64]model.Stall
	rentals  map[uint64]model.Rental
	payments map[uint64]model.Payment
	receipts map[string]model.Receipt
	users    map[uint64]model.User
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (db *memDB) snapshot() snapshot {
	db.mu.Lock()
	defer db.mu.Unlock()
	return snapshot{db.nextID, copyMap(db.vendors), copyMap(db.sections), copyMap(db.stalls),
		copyMap(db.rentals), copyMap(db.payments), copyMap(db.receipts), copyMap(db.users)}
}

func (db *memDB) restore(s snapshot) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.nextID, db.vendors, db.sections, db.stalls = s.nextID, s.vendors, s.sections, s.stalls
	db.rentals, db.payments, db.receipts, db.users = s.rentals, s.payments, s.receipts, s.users
}

// ----- tx -----

type txKey struct{}

type memTx struct {
	db      *memDB
	begins  int
	commits int
}

func (t *memTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	t.begins++
	snap := t.db.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		t.db.restore(snap)
		return err
	}
	t.commits++
	return nil
}

// ----- vendors -----

type vendorMem struct{ db *memDB }

func (m vendorMem) Create(_ context.Context, v *model.Vendor) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, o := range m.db.vendors {
		if model.NormalizeKey(o.Name) == model.NormalizeKey(v.Name) {
			return repository.ErrDuplicate
		}
	}
	v.ID = m.db.id()
	m.db.vendors[v.ID] = *v
	return nil
}

func (m vendorMem) GetByID(_ context.Context, id uint64) (model.Vendor, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	v, ok := m.db.vendors[id]
	if !ok {
		return model.Vendor{}, repository.ErrNotFound
	}
	return v, nil
}

func (m vendorMem) List(_ context.Context) ([]model.VendorView, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	out := []model.VendorView{}
	for _, v := range m.db.vendors {
		vv := model.VendorView{Vendor: v}
		for _, r := range m.db.rentals {
			if r.VendorID == v.ID && r.Active() {
				vv.HasRental = true
			}
		}
		out = append(out, vv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m vendorMem) Update(_ context.Context, v *model.Vendor) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if _, ok := m.db.vendors[v.ID]; !ok {
		return repository.ErrNotFound
	}
	for _, o := range m.db.vendors {
		if o.ID != v.ID && model.NormalizeKey(o.Name) == model.NormalizeKey(v.Name) {
			return repository.ErrDuplicate
		}
	}
	m.db.vendors[v.ID] = *v
	return nil
}

func (m vendorMem) Delete(_ context.Context, id uint64) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if _, ok := m.db.vendors[id]; !ok {
		return repository.ErrNotFound
	}
	for _, r := range m.db.rentals {
		if r.VendorID == id {
			return errRestricted
		}
	}
	delete(m.db.vendors, id)
	return nil
}

// ----- sections -----

type sectionMem struct{ db *memDB }

func (m sectionMem) dup(s *model.Section) bool {
	for _, o := range m.db.sections {
		if o.ID != s.ID && model.NormalizeKey(o.Group) == model.NormalizeKey(s.Group) &&
			model.NormalizeKey(o.Name) == model.NormalizeKey(s.Name) {
			return true
		}
	}
	return false
}

func (m sectionMem) Create(_ context.Context, s *model.Section) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if m.dup(s) {
		return repository.ErrDuplicate
	}
	s.ID = m.db.id()
	m.db.sections[s.ID] = *s
	return nil
}

func (m sectionMem) GetByID(_ context.Context, id uint64) (model.Section, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	s, ok := m.db.sections[id]
	if !ok {
		return model.Section{}, repository.ErrNotFound
	}
	return s, nil
}

func (m sectionMem) List(_ context.Context) ([]model.SectionView, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	out := []model.SectionView{}
	for _, s := range m.db.sections {
		v := model.SectionView{Section: s}
		for _, st := range m.db.stalls {
			if st.SectionID == s.ID {
				v.StallCount++
			}
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m sectionMem) Update(_ context.Context, s *model.Section) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if _, ok := m.db.sections[s.ID]; !ok {
		return repository.ErrNotFound
	}
	if m.dup(s) {
		return repository.ErrDuplicate
	}
	m.db.sections[s.ID] = *s
	return nil
}

func (m sectionMem) Delete(_ context.Context, id uint64) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if _, ok := m.db.sections[id]; !ok {
		return repository.ErrNotFound
	}
	for _, st := range m.db.stalls {
		if st.SectionID == id {
			return errRestricted
		}
	}
	delete(m.db.sections, id)
	return nil
}

// ----- stalls -----

type stallMem struct{ db *memDB }

func (db *memDB) stallTakenLocked(group string, number int, except uint64) bool {
	for _, o := range db.stalls {
		if o.ID != except && o.GroupKey == group && o.Number == number {
			return true
		}
	}
	return false
}

func (m stallMem) Create(_ context.Context, st *model.Stall) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if m.db.stallTakenLocked(st.GroupKey, st.Number, 0) {
		return repository.ErrDuplicate
	}
	st.ID = m.db.id()
	m.db.stalls[st.ID] = *st
	return nil
}

func (m stallMem) CreateBulk(ctx context.Context, stalls []model.Stall) error {
	for i := range stalls {
		if err := m.Create(ctx, &stalls[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m stallMem) GetByID(_ context.Context, id uint64) (model.Stall, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	st, ok := m.db.stalls[id]
	if !ok {
		return model.Stall{}, repository.ErrNotFound
	}
	return st, nil
}

func (m stallMem) GetForUpdate(ctx context.Context, id uint64) (model.Stall, error) {
	return m.GetByID(ctx, id)
}

func (m stallMem) List(_ context.Context, sectionID uint64) ([]model.StallView, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	out := []model.StallView{}
	for _, st := range m.db.stalls {
		if sectionID != 0 && st.SectionID != sectionID {
			continue
		}
		sec := m.db.sections[st.SectionID]
		out = append(out, model.StallView{Stall: st, SectionName: sec.Name, Group: sec.Group})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].GroupKey != out[j].GroupKey {
			return out[i].GroupKey < out[j].GroupKey
		}
		return out[i].Number < out[j].Number
	})
	return out, nil
}

func (m stallMem) Update(_ context.Context, st *model.Stall) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if _, ok := m.db.stalls[st.ID]; !ok {
		return repository.ErrNotFound
	}
	m.db.stalls[st.ID] = *st
	return nil
}

func (m stallMem) Delete(_ context.Context, id uint64) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if _, ok := m.db.stalls[id]; !ok {
		return repository.ErrNotFound
	}
	for _, r := range m.db.rentals {
		if r.StallID == id {
			return errRestricted
		}
	}
	delete(m.db.stalls, id)
	return nil
}

func (m stallMem) DeleteBySection(_ context.Context, sectionID uint64) (int64, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var n int64
	for id, st := range m.db.stalls {
		if st.SectionID != sectionID {
			continue
		}
		for _, r := range m.db.rentals {
			if r.StallID == id {
				return 0, errRestricted
			}
		}
		delete(m.db.stalls, id)
		n++
	}
	return n, nil
}

func (m stallMem) CountBySection(_ context.Context, sectionID uint64) (int, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	n := 0
	for _, st := range m.db.stalls {
		if st.SectionID == sectionID {
			n++
		}
	}
	return n, nil
}

func (m stallMem) MaxNumber(_ context.Context, group string) (int, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	last := 0
	for _, st := range m.db.stalls {
		if st.GroupKey == group && st.Number > last {
			last = st.Number
		}
	}
	return last, nil
}

func (m stallMem) LockGroup(_ context.Context, group string) ([]model.Stall, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []model.Stall
	for _, st := range m.db.stalls {
		if st.GroupKey == group {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (m stallMem) ShiftUp(_ context.Context, group string, from int) (int64, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var n int64
	for id, st := range m.db.stalls {
		if st.GroupKey == group && st.Number >= from {
			st.Number++
			m.db.stalls[id] = st
			n++
		}
	}
	return n, nil
}

func (m stallMem) Renumber(_ context.Context, id uint64, group string, number int) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	st, ok := m.db.stalls[id]
	if !ok {
		return repository.ErrNotFound
	}
	if m.db.stallTakenLocked(group, number, id) {
		return repository.ErrDuplicate
	}
	st.GroupKey, st.Number = group, number
	m.db.stalls[id] = st
	return nil
}

// ----- rentals -----

type rentalMem struct{ db *memDB }

var errCheckConstraint = errors.New("check constraint chk_rentals_ban violated")

func (m rentalMem) Create(_ context.Context, rt *model.Rental) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	rt.ID = m.db.id()
	rt.Version = 1
	m.db.rentals[rt.ID] = *rt
	return nil
}

func (m rentalMem) GetByID(_ context.Context, id uint64) (model.Rental, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	rt, ok := m.db.rentals[id]
	if !ok {
		return model.Rental{}, repository.ErrNotFound
	}
	return rt, nil
}

func (m rentalMem) GetForUpdate(ctx context.Context, id uint64) (model.Rental, error) {
	return m.GetByID(ctx, id)
}

func (m rentalMem) List(_ context.Context) ([]model.RentalView, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	out := []model.RentalView{}
	for _, rt := range m.db.rentals {
		out = append(out, model.RentalView{
			Rental:      rt,
			VendorName:  m.db.vendors[rt.VendorID].Name,
			StallNumber: m.db.stalls[rt.StallID].Number,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m rentalMem) ListActive(_ context.Context) ([]model.Rental, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	out := []model.Rental{}
	for _, rt := range m.db.rentals {
		if rt.Active() {
			out = append(out, rt)
		}
	}
	return out, nil
}

func (m rentalMem) HasActiveForStall(_ context.Context, stallID, exceptID uint64) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, rt := range m.db.rentals {
		if rt.StallID == stallID && rt.Active() && rt.ID != exceptID {
			return true, nil
		}
	}
	return false, nil
}

func (m rentalMem) Update(_ context.Context, rt *model.Rental) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	cur, ok := m.db.rentals[rt.ID]
	if !ok {
		return repository.ErrNotFound
	}
	cur.VendorID, cur.StallID, cur.StartDate = rt.VendorID, rt.StallID, rt.StartDate
	cur.Version++
	m.db.rentals[rt.ID] = cur
	rt.Version++
	return nil
}

func (m rentalMem) UpdateBanPaid(_ context.Context, id uint64, banPaid int64, version uint32) error {
	if m.db.beforeBanUpdate != nil {
		m.db.beforeBanUpdate()
	}
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	cur, ok := m.db.rentals[id]
	if !ok || cur.Version != version {
		return repository.ErrStale
	}
	if banPaid < 0 || banPaid > cur.BanAmountCents {
		return errCheckConstraint
	}
	cur.BanPaidCents = banPaid
	cur.Version++
	m.db.rentals[id] = cur
	return nil
}

func (m rentalMem) SetEndDate(_ context.Context, id uint64, end time.Time) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	cur, ok := m.db.rentals[id]
	if !ok {
		return repository.ErrNotFound
	}
	cur.EndDate = &end
	cur.Version++
	m.db.rentals[id] = cur
	return nil
}

func (m rentalMem) Delete(_ context.Context, id uint64) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if _, ok := m.db.rentals[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.db.rentals, id)
	return nil
}

func (m rentalMem) DeleteByVendor(_ context.Context, vendorID uint64) (int64, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var n int64
	for id, rt := range m.db.rentals {
		if rt.VendorID == vendorID {
			delete(m.db.rentals, id)
			n++
		}
	}
	return n, nil
}

func (m rentalMem) DeleteByStall(_ context.Context, stallID uint64) (int64, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var n int64
	for id, rt := range m.db.rentals {
		if rt.StallID == stallID {
			delete(m.db.rentals, id)
			n++
		}
	}
	return n, nil
}

func (m rentalMem) DeleteBySection(_ context.Context, sectionID uint64) (int64, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var n int64
	for id, rt := range m.db.rentals {
		if st, ok := m.db.stalls[rt.StallID]; ok && st.SectionID == sectionID {
			delete(m.db.rentals, id)
			n++
		}
	}
	return n, nil
}

// ----- payments -----

type paymentMem struct {
	db        *memDB
	failBatch error
}

func (m *paymentMem) CountByRental(_ context.Context, rentalID uint64) (int, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	n := 0
	for _, p := range m.db.payments {
		if p.RentalID == rentalID {
			n++
		}
	}
	return n, nil
}

func (m *paymentMem) InsertBatch(_ context.Context, payments []model.Payment) error {
	if m.failBatch != nil {
		return m.failBatch
	}
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, p := range payments {
		if p.CostCents <= 0 {
			return errors.New("check constraint chk_payments_cost violated")
		}
		if _, ok := m.db.receipts[p.ORNumber]; !ok {
			return errors.New("foreign key fk_payments_receipt violated")
		}
	}
	for _, p := range payments {
		p.ID = m.db.id()
		m.db.payments[p.ID] = p
	}
	return nil
}

func (m *paymentMem) GetByID(_ context.Context, id uint64) (model.Payment, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	p, ok := m.db.payments[id]
	if !ok {
		return model.Payment{}, repository.ErrNotFound
	}
	return p, nil
}

func (m *paymentMem) filter(keep func(model.Payment) bool) []model.Payment {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	out := []model.Payment{}
	for _, p := range m.db.payments {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *paymentMem) List(_ context.Context, rentalID uint64) ([]model.Payment, error) {
	return m.filter(func(p model.Payment) bool { return rentalID == 0 || p.RentalID == rentalID }), nil
}

func (m *paymentMem) ListByORNumber(_ context.Context, or string) ([]model.Payment, error) {
	return m.filter(func(p model.Payment) bool { return p.ORNumber == or }), nil
}

func (m *paymentMem) Update(_ context.Context, p *model.Payment) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if _, ok := m.db.payments[p.ID]; !ok {
		return repository.ErrNotFound
	}
	m.db.payments[p.ID] = *p
	return nil
}

func (m *paymentMem) Delete(_ context.Context, id uint64) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if _, ok := m.db.payments[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.db.payments, id)
	return nil
}

// ----- receipts -----

type receiptMem struct{ db *memDB }

func (m receiptMem) Exists(_ context.Context, or string) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if _, ok := m.db.receipts[or]; ok {
		return true, nil
	}
	for _, p := range m.db.payments {
		if p.ORNumber == or {
			return true, nil
		}
	}
	return false, nil
}

func (m receiptMem) Reserve(_ context.Context, rc model.Receipt) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if _, ok := m.db.receipts[rc.ORNumber]; ok {
		return repository.ErrDuplicate
	}
	m.db.receipts[rc.ORNumber] = rc
	return nil
}

func (m receiptMem) Get(_ context.Context, or string) (model.Receipt, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	rc, ok := m.db.receipts[or]
	if !ok {
		return model.Receipt{}, repository.ErrNotFound
	}
	return rc, nil
}

// ----- users -----

type userMem struct{ db *memDB }

func (m userMem) dup(u *model.User) bool {
	for _, o := range m.db.users {
		if o.ID != u.ID && model.NormalizeKey(o.Username) == model.NormalizeKey(u.Username) {
			return true
		}
	}
	return false
}

func (m userMem) Create(_ context.Context, u *model.User, password string, cost int) error {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if m.dup(u) {
		return repository.ErrDuplicate
	}
	u.ID = m.db.id()
	u.PasswordHash = hash
	m.db.users[u.ID] = *u
	return nil
}

func (m userMem) GetByID(_ context.Context, id uint64) (model.User, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	u, ok := m.db.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (m userMem) GetByUsername(_ context.Context, username string) (model.User, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, u := range m.db.users {
		if model.NormalizeKey(u.Username) == model.NormalizeKey(username) {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (m userMem) List(_ context.Context) ([]model.User, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	out := []model.User{}
	for _, u := range m.db.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m userMem) Update(_ context.Context, u *model.User) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	cur, ok := m.db.users[u.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if m.dup(u) {
		return repository.ErrDuplicate
	}
	u.PasswordHash = cur.PasswordHash
	m.db.users[u.ID] = *u
	return nil
}

func (m userMem) UpdatePassword(_ context.Context, id uint64, password string, cost int) error {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	u, ok := m.db.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	m.db.users[id] = u
	return nil
}

func (m userMem) Delete(_ context.Context, id uint64) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if _, ok := m.db.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.db.users, id)
	return nil
}

// ----- events and metrics -----

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.EventType()
	}
	return out
}

type countingObserver struct {
	payments   map[string]int
	banOps     map[string]int
	collisions int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{payments: map[string]int{}, banOps: map[string]int{}}
}

func (o *countingObserver) PaymentsRecorded(source string, count int, _ int64) { o.payments[source] += count }
func (o *countingObserver) BanDepositChanged(op string)                        { o.banOps[op]++ }
func (o *countingObserver) ReceiptCollision()                                  { o.collisions++ }

// ----- fixture -----

type fixture struct {
	db        *memDB
	tx        *memTx
	vendors   vendorMem
	sections  sectionMem
	stalls    stallMem
	rentals   rentalMem
	payments  *paymentMem
	receipts  receiptMem
	users     userMem
	events    *recordingPublisher
	observer  *countingObserver
	numbering *StallNumbering
	catalog   *Catalog
	ledger    *RentalLedger
	userSvc   *Users
	now       time.Time
}

func newFixture() *fixture {
	db := newMemDB()
	f := &fixture{
		db:       db,
		tx:       &memTx{db: db},
		vendors:  vendorMem{db},
		sections: sectionMem{db},
		stalls:   stallMem{db},
		rentals:  rentalMem{db},
		payments: &paymentMem{db: db},
		receipts: receiptMem{db},
		users:    userMem{db},
		events:   &recordingPublisher{},
		observer: newCountingObserver(),
		now:      time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }
	f.numbering = NewStallNumbering(f.stalls, f.sections, f.tx)
	f.catalog = NewCatalog(f.vendors, f.sections, f.stalls, f.rentals, f.numbering, f.tx, nil)
	f.catalog.now = clock
	f.ledger = NewRentalLedger(LedgerDeps{
		Rentals:     f.rentals,
		Payments:    f.payments,
		Vendors:     f.vendors,
		Stalls:      f.stalls,
		Users:       f.users,
		ReceiptBook: f.receipts,
		Receipts:    NewReceiptGenerator(f.receipts, f.observer),
		Tx:          f.tx,
		Events:      f.events,
		Observer:    f.observer,
		Now:         clock,
	})
	f.userSvc = NewUsers(f.users, f.tx, 4)
	return f
}

func ptr[T any](v T) *T { return &v }
