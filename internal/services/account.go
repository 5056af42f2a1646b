package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/mural-social/apiserver/internal/store"
	"github.com/mural-social/apiserver/types"
)

// maxMutationRetries bounds optimistic-concurrency retries on account
// read-modify-write paths.
const maxMutationRetries = 3

// AccountRepository defines persistence operations for accounts.
type AccountRepository interface {
	GetByID(ctx context.Context, id int) (types.Account, error)
	GetByEmail(ctx context.Context, email string) (types.Account, error)
	EmailTaken(ctx context.Context, email string) (bool, error)
	NicknameTaken(ctx context.Context, nickname string, excludeID int) (bool, error)
	Create(ctx context.Context, account types.Account) (types.Account, error)
	Update(ctx context.Context, account types.Account) (types.Account, error)
	Delete(ctx context.Context, id int) error
}

// PostRepository defines the post operations the account lifecycle needs.
type PostRepository interface {
	ListByAuthor(ctx context.Context, authorID int) ([]types.Post, error)
	IDsByAuthor(ctx context.Context, authorID int) ([]int64, error)
}

// Janitor schedules best-effort cleanup work. Implementations must never
// surface failures to the caller; a missed deletion is preferable to a
// failed request.
type Janitor interface {
	DeleteBlobs(ctx context.Context, keys ...string)
	DeletePosts(ctx context.Context, ids ...int64)
	PruneFollowers(ctx context.Context, targetID int)
}

// RegistrationForm is the input to Register.
type RegistrationForm struct {
	Name            types.Name
	Email           string
	Password        string
	ConfirmPassword string
}

// ProfileUpdate is the input to Edit. Edits are full replacements, not
// partial patches: every field must be supplied.
type ProfileUpdate struct {
	Name        types.Name
	Email       string
	Password    string
	Bio         string
	SocialMedia []string
}

// AccountService orchestrates registration, authentication, profile
// edits, and account removal with cascading cleanup.
type AccountService struct {
	accounts AccountRepository
	posts    PostRepository
	follows  FollowRepository
	hasher   *PasswordHasher
	tokens   *TokenService
	janitor  Janitor
}

func NewAccountService(
	accounts AccountRepository,
	posts PostRepository,
	follows FollowRepository,
	hasher *PasswordHasher,
	tokens *TokenService,
	janitor Janitor,
) *AccountService {
	return &AccountService{
		accounts: accounts,
		posts:    posts,
		follows:  follows,
		hasher:   hasher,
		tokens:   tokens,
		janitor:  janitor,
	}
}

// Register validates the form, creates the account with the placeholder
// photo, and returns the account (hash stripped) with a session token.
func (s *AccountService) Register(ctx context.Context, form RegistrationForm) (types.Account, string, error) {
	if err := validateRegistration(form); err != nil {
		return types.Account{}, "", err
	}

	taken, err := s.accounts.EmailTaken(ctx, form.Email)
	if err != nil {
		return types.Account{}, "", fmt.Errorf("check email: %w", err)
	}
	if taken {
		return types.Account{}, "", store.ErrDuplicateEmail
	}

	hash, err := s.hasher.Hash(form.Password)
	if err != nil {
		return types.Account{}, "", fmt.Errorf("hash password: %w", err)
	}

	account, err := s.accounts.Create(ctx, types.Account{
		Name:         form.Name,
		Email:        form.Email,
		PasswordHash: hash,
		// Photo stays zero: new accounts render the placeholder asset.
	})
	if err != nil {
		return types.Account{}, "", err
	}

	token, err := s.tokens.Issue(account.ID)
	if err != nil {
		return types.Account{}, "", fmt.Errorf("issue token: %w", err)
	}

	account.PasswordHash = ""
	return account, token, nil
}

// The checked order mirrors the registration flow the clients depend on:
// mismatch first, then email, password pair, first, last, nickname.
func validateRegistration(form RegistrationForm) error {
	name := form.Name
	switch {
	case name.First != "" && name.Last != "" && name.Nickname != "" &&
		form.Email != "" && form.Password != "" && form.ConfirmPassword != "":
		if form.Password != form.ConfirmPassword {
			return ValidationError{Field: "confirmPassword", Message: "password confirmation does not match"}
		}
		return nil
	case form.Email == "":
		return missingField("email")
	case form.Password == "" || form.ConfirmPassword == "":
		return missingField("password")
	case name.First == "":
		return missingField("first")
	case name.Last == "":
		return missingField("last")
	default:
		return missingField("nickname")
	}
}

// Authenticate verifies the credentials and returns the account (hash
// stripped) with a fresh session token.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (types.Account, string, error) {
	if email == "" {
		return types.Account{}, "", missingField("email")
	}
	if password == "" {
		return types.Account{}, "", missingField("password")
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		return types.Account{}, "", err
	}

	ok, err := s.hasher.Compare(password, account.PasswordHash)
	if err != nil {
		return types.Account{}, "", fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return types.Account{}, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(account.ID)
	if err != nil {
		return types.Account{}, "", fmt.Errorf("issue token: %w", err)
	}

	account.PasswordHash = ""
	return account, token, nil
}

// Get returns the account with the hash stripped.
func (s *AccountService) Get(ctx context.Context, id int) (types.Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return types.Account{}, err
	}
	account.PasswordHash = ""
	return account, nil
}

// Profile returns the account together with its posts and follow set.
func (s *AccountService) Profile(ctx context.Context, id int) (types.Account, []types.Post, error) {
	account, err := s.Get(ctx, id)
	if err != nil {
		return types.Account{}, nil, err
	}

	following, err := s.follows.List(ctx, id)
	if err != nil {
		return types.Account{}, nil, fmt.Errorf("list follows: %w", err)
	}
	account.Following = following

	posts, err := s.posts.ListByAuthor(ctx, id)
	if err != nil {
		return types.Account{}, nil, fmt.Errorf("list posts: %w", err)
	}
	return account, posts, nil
}

// EmailAvailable reports whether the email is free for registration.
func (s *AccountService) EmailAvailable(ctx context.Context, email string) (bool, error) {
	taken, err := s.accounts.EmailTaken(ctx, email)
	return !taken, err
}

// NicknameAvailable reports whether the nickname is free for registration.
func (s *AccountService) NicknameAvailable(ctx context.Context, nickname string) (bool, error) {
	taken, err := s.accounts.NicknameTaken(ctx, nickname, 0)
	return !taken, err
}

// Edit replaces the account's profile fields. The whole update is applied
// or none of it; concurrent edits are serialized by the version check.
func (s *AccountService) Edit(ctx context.Context, id int, update ProfileUpdate) error {
	if err := validateProfileUpdate(update); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(update.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	for attempt := 0; ; attempt++ {
		account, err := s.accounts.GetByID(ctx, id)
		if err != nil {
			return err
		}

		if !strings.EqualFold(account.Name.Nickname, update.Name.Nickname) {
			taken, err := s.accounts.NicknameTaken(ctx, update.Name.Nickname, id)
			if err != nil {
				return fmt.Errorf("check nickname: %w", err)
			}
			if taken {
				return store.ErrDuplicateNickname
			}
		}

		account.Name = update.Name
		account.Email = update.Email
		account.Bio = update.Bio
		account.SocialMedia = update.SocialMedia
		account.PasswordHash = hash

		_, err = s.accounts.Update(ctx, account)
		if errors.Is(err, store.ErrVersionConflict) && attempt < maxMutationRetries {
			continue
		}
		return err
	}
}

func validateProfileUpdate(update ProfileUpdate) error {
	switch {
	case update.Email == "":
		return missingField("email")
	case update.Password == "":
		return missingField("password")
	case update.Bio == "":
		return missingField("bio")
	case update.SocialMedia == nil:
		return missingField("socialMedia")
	case update.Name.First == "":
		return missingField("first")
	case update.Name.Last == "":
		return missingField("last")
	case update.Name.Nickname == "":
		return missingField("nickname")
	}
	return nil
}

// Remove deletes the account record and schedules best-effort cleanup of
// everything it owned: posts, custom media assets, and follow edges held
// by other accounts.
func (s *AccountService) Remove(ctx context.Context, id int) error {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return err
	}

	postIDs, err := s.posts.IDsByAuthor(ctx, id)
	if err != nil {
		// Post cleanup is best-effort; removal proceeds without it.
		log.Printf("account %d: listing posts for cleanup failed: %v", id, err)
		postIDs = nil
	}

	if err := s.accounts.Delete(ctx, id); err != nil {
		return err
	}

	if len(postIDs) > 0 {
		s.janitor.DeletePosts(ctx, postIDs...)
	}
	if account.Photo.Custom() {
		s.janitor.DeleteBlobs(ctx, account.Photo.Thumbnail, account.Photo.Original)
	}
	s.janitor.PruneFollowers(ctx, id)
	return nil
}
