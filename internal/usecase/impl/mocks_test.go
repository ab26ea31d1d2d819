package impl

import (
	"context"
	"sync"
	"time"

	"geodex/internal/domain/entity"
	"geodex/internal/domain/repository"
	"geodex/internal/domain/service"

	"github.com/google/uuid"
)

// fakeStore is a single in-memory backing store shared by all fake
// repositories of one test, so transactional services observe a consistent
// view just like they would against one database.
type fakeStore struct {
	mu sync.Mutex

	entries    map[uuid.UUID]*entity.Entry
	ratings    map[uuid.UUID]*entity.Rating
	subs       map[uuid.UUID]*entity.BboxSubscription
	tokens     map[uuid.UUID]*entity.ConfirmationToken
	users      map[uuid.UUID]*entity.User
	events     []*entity.ChangeEvent
	processed  map[int64]bool
	dispatches map[string]*repository.DispatchItem

	nextSeq        int64
	nextDispatchID int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		entries:    make(map[uuid.UUID]*entity.Entry),
		ratings:    make(map[uuid.UUID]*entity.Rating),
		subs:       make(map[uuid.UUID]*entity.BboxSubscription),
		tokens:     make(map[uuid.UUID]*entity.ConfirmationToken),
		users:      make(map[uuid.UUID]*entity.User),
		processed:  make(map[int64]bool),
		dispatches: make(map[string]*repository.DispatchItem),
	}
}

// fakeTxManager runs the callback against the same store without real
// transaction semantics; the services under test never rely on rollback in
// these scenarios.
type fakeTxManager struct {
	store *fakeStore
}

func (m *fakeTxManager) Execute(_ context.Context, fn func(repository.RepositoryFactory) error) error {
	return fn(&fakeFactory{store: m.store})
}

type fakeFactory struct {
	store *fakeStore
}

func (f *fakeFactory) NewEntryRepository() repository.EntryRepository {
	return &fakeEntryRepo{store: f.store}
}

func (f *fakeFactory) NewRatingRepository() repository.RatingRepository {
	return &fakeRatingRepo{store: f.store}
}

func (f *fakeFactory) NewSubscriptionRepository() repository.SubscriptionRepository {
	return &fakeSubscriptionRepo{store: f.store}
}

func (f *fakeFactory) NewTokenRepository() repository.TokenRepository {
	return &fakeTokenRepo{store: f.store}
}

func (f *fakeFactory) NewChangeEventRepository() repository.ChangeEventRepository {
	return &fakeEventRepo{store: f.store}
}

func (f *fakeFactory) NewDispatchQueueRepository() repository.DispatchQueueRepository {
	return &fakeDispatchRepo{store: f.store}
}

// --- entry repository ---

type fakeEntryRepo struct {
	store *fakeStore
}

func (r *fakeEntryRepo) CreateEntry(_ context.Context, entry *entity.Entry) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	entry.ID = uuid.New()
	entry.Version = 1
	entry.CreatedAt = time.Now()
	entry.UpdatedAt = entry.CreatedAt
	cp := *entry
	r.store.entries[entry.ID] = &cp

	return nil
}

func (r *fakeEntryRepo) FindEntryByID(_ context.Context, id uuid.UUID) (*entity.Entry, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	entry, ok := r.store.entries[id]
	if !ok {
		return nil, repository.ErrEntryNotFound
	}
	cp := *entry

	return &cp, nil
}

func (r *fakeEntryRepo) FindEntriesInBbox(_ context.Context, bbox entity.BoundingBox, limit int) ([]*entity.Entry, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var out []*entity.Entry
	for _, entry := range r.store.entries {
		if entry.Archived() || !bbox.Contains(entry.Latitude, entry.Longitude) {
			continue
		}
		cp := *entry
		out = append(out, &cp)
		if len(out) == limit {
			break
		}
	}

	return out, nil
}

func (r *fakeEntryRepo) ListEntries(_ context.Context) ([]*entity.Entry, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var out []*entity.Entry
	for _, entry := range r.store.entries {
		if entry.Archived() {
			continue
		}
		cp := *entry
		out = append(out, &cp)
	}

	return out, nil
}

func (r *fakeEntryRepo) UpdateEntryVersioned(_ context.Context, id uuid.UUID, expectedVersion int64, patch repository.EntryPatch) (*entity.Entry, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	entry, ok := r.store.entries[id]
	if !ok || entry.Archived() {
		return nil, repository.ErrEntryNotFound
	}
	if entry.Version != expectedVersion {
		return nil, repository.ErrVersionMismatch
	}

	if patch.Title != nil {
		entry.Title = *patch.Title
	}
	if patch.Description != nil {
		entry.Description = *patch.Description
	}
	if patch.Latitude != nil {
		entry.Latitude = *patch.Latitude
	}
	if patch.Longitude != nil {
		entry.Longitude = *patch.Longitude
	}
	if patch.Categories != nil {
		entry.Categories = patch.Categories
	}
	entry.Version++
	entry.UpdatedAt = time.Now()
	cp := *entry

	return &cp, nil
}

func (r *fakeEntryRepo) UpdateRatingAggregate(_ context.Context, id uuid.UUID, avg float64, count int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	entry, ok := r.store.entries[id]
	if !ok {
		return repository.ErrEntryNotFound
	}
	entry.AvgRating = avg
	entry.RatingCount = count

	return nil
}

func (r *fakeEntryRepo) ArchiveEntry(_ context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	entry, ok := r.store.entries[id]
	if !ok {
		return repository.ErrEntryNotFound
	}
	if entry.ArchivedAt == nil {
		now := time.Now()
		entry.ArchivedAt = &now
	}

	return nil
}

// --- rating repository ---

type fakeRatingRepo struct {
	store *fakeStore
}

func (r *fakeRatingRepo) CreateRating(_ context.Context, rating *entity.Rating) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	rating.ID = uuid.New()
	rating.CreatedAt = time.Now()
	cp := *rating
	r.store.ratings[rating.ID] = &cp

	return nil
}

func (r *fakeRatingRepo) FindRatingsByIDs(_ context.Context, ids []uuid.UUID) ([]*entity.Rating, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	out := []*entity.Rating{}
	for _, id := range ids {
		if rating, ok := r.store.ratings[id]; ok {
			cp := *rating
			out = append(out, &cp)
		}
	}

	return out, nil
}

func (r *fakeRatingRepo) FindRatingsByEntry(_ context.Context, entryID uuid.UUID) ([]*entity.Rating, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var out []*entity.Rating
	for _, rating := range r.store.ratings {
		if rating.EntryID == entryID {
			cp := *rating
			out = append(out, &cp)
		}
	}

	return out, nil
}

func (r *fakeRatingRepo) AggregateForEntry(_ context.Context, entryID uuid.UUID) (float64, int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var sum, count int64
	for _, rating := range r.store.ratings {
		if rating.EntryID == entryID {
			sum += int64(rating.Value)
			count++
		}
	}
	if count == 0 {
		return 0, 0, nil
	}

	return float64(sum) / float64(count), count, nil
}

// --- subscription repository ---

type fakeSubscriptionRepo struct {
	store *fakeStore
}

func (r *fakeSubscriptionRepo) CreateSubscription(_ context.Context, subscription *entity.BboxSubscription) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, existing := range r.store.subs {
		if existing.UserID == subscription.UserID && existing.Bbox == subscription.Bbox {
			return repository.ErrDuplicateSubscription
		}
	}

	subscription.ID = uuid.New()
	subscription.CreatedAt = time.Now()
	subscription.UpdatedAt = subscription.CreatedAt
	cp := *subscription
	r.store.subs[subscription.ID] = &cp

	return nil
}

func (r *fakeSubscriptionRepo) FindSubscriptionByID(_ context.Context, id uuid.UUID) (*entity.BboxSubscription, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	subscription, ok := r.store.subs[id]
	if !ok || subscription.Deleted() {
		return nil, repository.ErrSubscriptionNotFound
	}
	cp := *subscription

	return &cp, nil
}

// Unscoped like the real repository: deleted rows are returned for revival.
func (r *fakeSubscriptionRepo) FindSubscriptionByUserAndBbox(_ context.Context, userID uuid.UUID, bbox entity.BoundingBox) (*entity.BboxSubscription, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, subscription := range r.store.subs {
		if subscription.UserID == userID && subscription.Bbox == bbox {
			cp := *subscription

			return &cp, nil
		}
	}

	return nil, repository.ErrSubscriptionNotFound
}

func (r *fakeSubscriptionRepo) FindSubscriptionsByUser(_ context.Context, userID uuid.UUID) ([]*entity.BboxSubscription, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var out []*entity.BboxSubscription
	for _, subscription := range r.store.subs {
		if subscription.UserID == userID && !subscription.Deleted() {
			cp := *subscription
			out = append(out, &cp)
		}
	}

	return out, nil
}

func (r *fakeSubscriptionRepo) FindConfirmedSubscriptions(_ context.Context) ([]*entity.BboxSubscription, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var out []*entity.BboxSubscription
	for _, subscription := range r.store.subs {
		if subscription.State == entity.SubscriptionConfirmed && !subscription.Deleted() {
			cp := *subscription
			out = append(out, &cp)
		}
	}

	return out, nil
}

func (r *fakeSubscriptionRepo) FindPendingSubscriptionsByUser(_ context.Context, userID uuid.UUID) ([]*entity.BboxSubscription, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var out []*entity.BboxSubscription
	for _, subscription := range r.store.subs {
		if subscription.UserID == userID && subscription.State == entity.SubscriptionPending && !subscription.Deleted() {
			cp := *subscription
			out = append(out, &cp)
		}
	}

	return out, nil
}

func (r *fakeSubscriptionRepo) UpdateSubscriptionState(_ context.Context, id uuid.UUID, state entity.SubscriptionState) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	subscription, ok := r.store.subs[id]
	if !ok {
		return repository.ErrSubscriptionNotFound
	}
	subscription.State = state
	subscription.UpdatedAt = time.Now()

	return nil
}

func (r *fakeSubscriptionRepo) RestoreSubscription(_ context.Context, id uuid.UUID, state entity.SubscriptionState) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	subscription, ok := r.store.subs[id]
	if !ok {
		return repository.ErrSubscriptionNotFound
	}
	subscription.DeletedAt = nil
	subscription.State = state
	subscription.UpdatedAt = time.Now()

	return nil
}

// Soft delete like the real repository: the row keeps its unique index slot.
func (r *fakeSubscriptionRepo) DeleteSubscriptionsByUser(_ context.Context, userID uuid.UUID) ([]*entity.BboxSubscription, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	now := time.Now()
	var out []*entity.BboxSubscription
	for _, subscription := range r.store.subs {
		if subscription.UserID == userID && !subscription.Deleted() {
			cp := *subscription
			out = append(out, &cp)
			subscription.DeletedAt = &now
		}
	}

	return out, nil
}

// --- token repository ---

type fakeTokenRepo struct {
	store *fakeStore

	// afterFind, when set, runs after FindTokenByValue returns its copy.
	// Tests use it to interleave a concurrent state change between the read
	// and the guarded update.
	afterFind func()
}

func (r *fakeTokenRepo) CreateToken(_ context.Context, token *entity.ConfirmationToken) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	token.ID = uuid.New()
	token.CreatedAt = time.Now()
	cp := *token
	r.store.tokens[token.ID] = &cp

	return nil
}

func (r *fakeTokenRepo) FindTokenByValue(_ context.Context, value string) (*entity.ConfirmationToken, error) {
	r.store.mu.Lock()
	var found *entity.ConfirmationToken
	for _, token := range r.store.tokens {
		if token.Token == value {
			cp := *token
			found = &cp

			break
		}
	}
	r.store.mu.Unlock()

	if found == nil {
		return nil, repository.ErrTokenNotFound
	}
	if r.afterFind != nil {
		r.afterFind()
	}

	return found, nil
}

// Compare-and-set like the real repository: the update only lands when the
// stored state still matches from.
func (r *fakeTokenRepo) UpdateTokenState(_ context.Context, id uuid.UUID, from, to entity.TokenState) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	token, ok := r.store.tokens[id]
	if !ok || token.State != from {
		return repository.ErrTokenStateConflict
	}
	token.State = to
	if to == entity.TokenConfirmed {
		now := time.Now()
		token.RedeemedAt = &now
	}

	return nil
}

func (r *fakeTokenRepo) RevokeTokensForOwner(_ context.Context, ownerID uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, token := range r.store.tokens {
		if token.OwnerID == ownerID && token.State == entity.TokenPending {
			token.State = entity.TokenRevoked
		}
	}

	return nil
}

// --- user repository ---

type fakeUserRepo struct {
	store *fakeStore
}

func (r *fakeUserRepo) EnsureUser(_ context.Context, id uuid.UUID, email string) (*entity.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	user, ok := r.store.users[id]
	if !ok {
		user = &entity.User{ID: id, CreatedAt: time.Now()}
		r.store.users[id] = user
	}
	user.Email = email
	user.UpdatedAt = time.Now()
	cp := *user

	return &cp, nil
}

func (r *fakeUserRepo) FindUserByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	user, ok := r.store.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *user

	return &cp, nil
}

func (r *fakeUserRepo) FindUserByEmail(_ context.Context, email string) (*entity.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, user := range r.store.users {
		if user.Email == email {
			cp := *user

			return &cp, nil
		}
	}

	return nil, repository.ErrUserNotFound
}

func (r *fakeUserRepo) MarkEmailConfirmed(_ context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	user, ok := r.store.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.EmailConfirmed = true

	return nil
}

// --- change event repository ---

type fakeEventRepo struct {
	store *fakeStore
}

func (r *fakeEventRepo) AppendEvent(_ context.Context, event *entity.ChangeEvent) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	r.store.nextSeq++
	event.Sequence = r.store.nextSeq
	event.CreatedAt = time.Now()
	cp := *event
	r.store.events = append(r.store.events, &cp)

	return nil
}

func (r *fakeEventRepo) FindUnprocessed(_ context.Context, limit int) ([]*entity.ChangeEvent, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var out []*entity.ChangeEvent
	for _, event := range r.store.events {
		if r.store.processed[event.Sequence] {
			continue
		}
		cp := *event
		out = append(out, &cp)
		if len(out) == limit {
			break
		}
	}

	return out, nil
}

func (r *fakeEventRepo) MarkProcessed(_ context.Context, sequence int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	r.store.processed[sequence] = true

	return nil
}

// --- dispatch queue repository ---

type fakeDispatchRepo struct {
	store *fakeStore
}

func (r *fakeDispatchRepo) EnqueueItems(_ context.Context, items []*repository.DispatchItem) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, item := range items {
		key := item.IdempotencyKey()
		if _, dup := r.store.dispatches[key]; dup {
			continue
		}
		r.store.nextDispatchID++
		cp := *item
		cp.ID = r.store.nextDispatchID
		cp.State = repository.DispatchPending
		cp.CreatedAt = time.Now()
		cp.UpdatedAt = cp.CreatedAt
		r.store.dispatches[key] = &cp
	}

	return nil
}

func (r *fakeDispatchRepo) ClaimPending(_ context.Context, limit int) ([]*repository.DispatchItem, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var out []*repository.DispatchItem
	for _, item := range r.store.dispatches {
		if item.State != repository.DispatchPending {
			continue
		}
		item.State = repository.DispatchInflight
		cp := *item
		out = append(out, &cp)
		if len(out) == limit {
			break
		}
	}

	return out, nil
}

func (r *fakeDispatchRepo) MarkSent(_ context.Context, id int64, attempts int) error {
	return r.finalize(id, repository.DispatchSent, attempts, "")
}

func (r *fakeDispatchRepo) MarkFailed(_ context.Context, id int64, attempts int, lastError string) error {
	return r.finalize(id, repository.DispatchFailed, attempts, lastError)
}

func (r *fakeDispatchRepo) finalize(id int64, state repository.DispatchState, attempts int, lastError string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, item := range r.store.dispatches {
		if item.ID == id {
			item.State = state
			item.AttemptCount = attempts
			item.LastError = lastError

			return nil
		}
	}

	return nil
}

func (r *fakeDispatchRepo) ReleaseInflight(_ context.Context, _ time.Duration) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var released int64
	for _, item := range r.store.dispatches {
		if item.State == repository.DispatchInflight {
			item.State = repository.DispatchPending
			released++
		}
	}

	return released, nil
}

// --- capability fakes ---

type sentMessage struct {
	Recipient  string
	Subject    string
	ConfirmURL string
	Summary    service.EventSummary
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (n *fakeNotifier) Send(_ context.Context, recipient string, summary service.EventSummary) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentMessage{Recipient: recipient, Summary: summary})

	return nil
}

func (n *fakeNotifier) SendConfirmation(_ context.Context, recipient, subject, confirmURL string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentMessage{Recipient: recipient, Subject: subject, ConfirmURL: confirmURL})

	return nil
}

func (n *fakeNotifier) sentCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()

	return len(n.sent)
}

type fakePublisher struct {
	mu        sync.Mutex
	published []*entity.ChangeEvent
}

func (p *fakePublisher) Publish(_ context.Context, event *entity.ChangeEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := *event
	p.published = append(p.published, &cp)

	return nil
}

func (p *fakePublisher) Close() error { return nil }

type fakeBus struct {
	mu       sync.Mutex
	notified int
}

func (b *fakeBus) Notify() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notified++
}

func (b *fakeBus) Wait(ctx context.Context) error {
	return ctx.Err()
}
