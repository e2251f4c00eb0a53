package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/anjiri1684/stuplan/models"
	"github.com/anjiri1684/stuplan/utils"
	"go.uber.org/zap"
)

type AuthProvider interface {
	CurrentUserID() (string, bool)
}

// ProfileStore is the remote document store holding user profiles.
type ProfileStore interface {
	Fetch(ctx context.Context, userID string) (*models.UserProfile, error)
	Write(ctx context.Context, userID string, profile *models.UserProfile) error
}

// ImageHost uploads an image and returns its public URL.
type ImageHost interface {
	Upload(ctx context.Context, userID, filename string, r io.Reader) (string, error)
}

// ProfileStateStore owns the current profile, the loading flag and the update
// status for one session. All mutations go through its methods; collaborator
// calls happen outside the lock, so concurrent operations race and the last
// one to complete wins.
type ProfileStateStore struct {
	auth     AuthProvider
	profiles ProfileStore
	images   ImageHost
	logger   *zap.Logger

	mu      sync.Mutex
	state   ProfileState
	subs    map[int]chan ProfileState
	nextSub int
	closed  bool
}

func NewProfileStateStore(auth AuthProvider, profiles ProfileStore, images ImageHost, logger *zap.Logger) *ProfileStateStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileStateStore{
		auth:     auth,
		profiles: profiles,
		images:   images,
		logger:   logger,
		state:    ProfileState{Status: Idle()},
		subs:     make(map[int]chan ProfileState),
	}
}

// State returns a copy of the current state.
func (s *ProfileStateStore) State() ProfileState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Subscribe returns a channel receiving a snapshot after every transition.
// A slow reader only misses intermediate snapshots, never the latest one.
// Snapshots are shared between subscribers and must not be modified.
func (s *ProfileStateStore) Subscribe() (<-chan ProfileState, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan ProfileState, 8)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
}

// Close ends every subscription. The store stays usable.
func (s *ProfileStateStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}

// LoadProfile fetches a profile and replaces the held one. An empty userID
// loads the authenticated user's profile.
func (s *ProfileStateStore) LoadProfile(ctx context.Context, userID string) error {
	const op = "load profile"
	s.begin(op)

	target := userID
	if target == "" {
		id, ok := s.auth.CurrentUserID()
		if !ok || id == "" {
			return s.fail(op, ErrNotAuthenticated)
		}
		target = id
	}

	profile, err := s.profiles.Fetch(ctx, target)
	if err == nil && profile == nil {
		err = fmt.Errorf("no profile returned for %s", target)
	}
	if err != nil {
		return s.fail(op, &RemoteError{Op: op, Err: err})
	}

	s.succeed(op, func(st *ProfileState) {
		st.Profile = profile.Clone()
	})
	return nil
}

// UpdateProfile applies the update to a copy of the held profile and persists
// it. The held profile is replaced only once the write succeeds.
func (s *ProfileStateStore) UpdateProfile(ctx context.Context, update models.ProfileUpdate) error {
	const op = "update profile"
	s.begin(op)

	current, err := s.ownedProfile()
	if err != nil {
		return s.fail(op, err)
	}

	next := current.Apply(update)
	if err := utils.Validate.StructPartial(next, update.Fields()...); err != nil {
		return s.fail(op, validationErrorFrom(err))
	}

	if err := s.profiles.Write(ctx, next.UserID, next); err != nil {
		return s.fail(op, &RemoteError{Op: op, Err: err})
	}

	s.succeed(op, func(st *ProfileState) {
		st.Profile = next
	})
	return nil
}

// UploadAvatarImage pushes the image to the image host and, on success, sets
// the returned URL as the avatar through UpdateProfile.
func (s *ProfileStateStore) UploadAvatarImage(ctx context.Context, filename string, image io.Reader) error {
	const op = "upload avatar image"
	s.begin(op)

	owned, err := s.ownedProfile()
	if err != nil {
		return s.fail(op, err)
	}

	link, err := s.images.Upload(ctx, owned.UserID, filename, image)
	if err == nil && !utils.IsImageURL(link) {
		err = fmt.Errorf("image host returned invalid link %q", link)
	}
	if err != nil {
		return s.fail(op, &RemoteError{Op: op, Err: err})
	}

	s.logger.Info("avatar image uploaded", zap.String("url", link))
	return s.UpdateProfile(ctx, models.ProfileUpdate{AvatarRef: &link})
}

// SelectAvatarCategory switches the avatar to one of the fixed categories.
func (s *ProfileStateStore) SelectAvatarCategory(ctx context.Context, category string) error {
	if !utils.IsCategoryAvatar(category) {
		const op = "select avatar category"
		s.begin(op)
		return s.fail(op, &ValidationError{Field: "avatar_ref", Reason: fmt.Sprintf("unknown avatar category %q", category)})
	}
	return s.UpdateProfile(ctx, models.ProfileUpdate{AvatarRef: &category})
}

// CreateProfile writes the default profile for a freshly registered user.
func (s *ProfileStateStore) CreateProfile(ctx context.Context, displayName, email string) error {
	const op = "create profile"
	s.begin(op)

	userID, ok := s.auth.CurrentUserID()
	if !ok || userID == "" {
		return s.fail(op, ErrNotAuthenticated)
	}
	if !utils.ValidEmail(email) {
		return s.fail(op, &ValidationError{Field: "email", Reason: "must be a valid email address"})
	}

	profile := models.NewUserProfile(userID, displayName, email)
	if err := utils.Validate.Struct(profile); err != nil {
		return s.fail(op, validationErrorFrom(err))
	}

	if err := s.profiles.Write(ctx, userID, profile); err != nil {
		return s.fail(op, &RemoteError{Op: op, Err: err})
	}

	s.succeed(op, func(st *ProfileState) {
		st.Profile = profile
	})
	return nil
}

// ClearStatus acknowledges the last outcome. Calling it again is a no-op.
func (s *ProfileStateStore) ClearStatus() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Status.Kind == StatusIdle {
		return
	}
	s.state.Status = Idle()
	s.publishLocked()
}

// Discard drops the held profile, e.g. after logout or account deletion.
func (s *ProfileStateStore) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = ProfileState{Status: Idle()}
	s.publishLocked()
}

func (s *ProfileStateStore) ownedProfile() (*models.UserProfile, error) {
	userID, ok := s.auth.CurrentUserID()
	if !ok || userID == "" {
		return nil, ErrNotAuthenticated
	}

	s.mu.Lock()
	current := s.state.Profile.Clone()
	s.mu.Unlock()

	if current == nil {
		return nil, ErrProfileNotLoaded
	}
	if current.UserID != userID {
		return nil, fmt.Errorf("%w: held profile belongs to another user", ErrNotAuthenticated)
	}
	return current, nil
}

func (s *ProfileStateStore) begin(op string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Loading = true
	s.state.Status = Loading()
	s.publishLocked()
	s.logger.Debug("profile operation started", zap.String("op", op))
}

func (s *ProfileStateStore) succeed(op string, apply func(*ProfileState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	apply(&s.state)
	s.state.Loading = false
	s.state.Status = Success()
	s.publishLocked()
	s.logger.Info("profile operation succeeded", zap.String("op", op))
}

func (s *ProfileStateStore) fail(op string, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Loading = false
	s.state.Status = Failed(err.Error())
	s.publishLocked()

	var remote *RemoteError
	if errors.As(err, &remote) {
		s.logger.Warn("profile operation failed", zap.String("op", op), zap.Error(err))
	} else {
		s.logger.Info("profile operation rejected", zap.String("op", op), zap.Error(err))
	}
	return err
}

func (s *ProfileStateStore) publishLocked() {
	if len(s.subs) == 0 {
		return
	}
	snap := s.state.clone()
	for _, ch := range s.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}
