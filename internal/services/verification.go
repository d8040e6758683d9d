package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spidey000/sendit-discord-wallet-verif/internal/database"
	"github.com/spidey000/sendit-discord-wallet-verif/internal/models"
)

var (
	// ErrTokenNotFound means the bearer's token_id has no row.
	ErrTokenNotFound = errors.New("verification token not found")
	// ErrUserMismatch means the bearer's user_id does not match the row.
	ErrUserMismatch = errors.New("bearer token does not match the requesting user")
	// ErrTokenNotPending covers already-used, failed, and expired tokens.
	ErrTokenNotPending = errors.New("verification token is no longer pending")
	// ErrSignatureInvalid means the Ed25519 check failed; the attempt
	// consumed the token.
	ErrSignatureInvalid = errors.New("signature verification failed")
	// ErrAlreadyProcessed means a concurrent submission consumed the token
	// first; no side effects were repeated.
	ErrAlreadyProcessed = errors.New("verification token was already processed")
	// ErrWalletTaken means the wallet is linked to a different user.
	ErrWalletTaken = errors.New("wallet is already linked to another user")
	// ErrStoreUnavailable is the only retryable failure.
	ErrStoreUnavailable = errors.New("verification store unavailable")
)

// VerificationService validates proof submissions and drives the token
// state machine: pending to exactly one of success, failed, expired.
type VerificationService struct {
	store    *database.TokenStore
	users    *database.UserRepository
	notifier Notifier
	secret   []byte
	logger   *zap.Logger

	now func() time.Time
}

// NewVerificationService creates a VerificationService.
//
// Parameters:
//
//	store: Token persistence.
//	users: User persistence.
//	notifier: Verified-event sink for the bot process.
//	secret: HS256 key for bearer validation.
//	logger: Logger for submission outcomes.
func NewVerificationService(store *database.TokenStore, users *database.UserRepository, notifier Notifier, secret []byte, logger *zap.Logger) *VerificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &VerificationService{
		store:    store,
		users:    users,
		notifier: notifier,
		secret:   secret,
		logger:   logger,
		now:      time.Now,
	}
}

// SubmitProof processes one proof submission against an issued token.
// The CAS inside the store transition is the sole serialization point: of N
// concurrent submissions for one token, at most one reaches the success
// side effects.
func (s *VerificationService) SubmitProof(ctx context.Context, bearer, wallet, signature, clientIP string) (*models.VerificationToken, error) {
	claims, err := ParseBearer(s.secret, bearer)
	if err != nil {
		return nil, ErrInvalidToken
	}

	token, err := s.store.Get(ctx, claims.TokenID)
	if err != nil {
		if errors.Is(err, database.ErrTokenNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, s.storeFailure("load token", err)
	}

	// A claim forged for another user's token fails hard, never silently
	// corrected.
	if token.UserID != claims.UserID {
		return nil, ErrUserMismatch
	}

	if token.Status != models.TokenStatusPending || token.IsExpired(s.now()) {
		return nil, ErrTokenNotPending
	}

	if _, err := DecodeWalletAddress(wallet); err != nil {
		return nil, err
	}

	message := []byte(ChallengeMessage(token.TokenID))
	valid, err := VerifyWalletSignature(wallet, signature, message)
	if err != nil {
		return nil, err
	}
	if !valid {
		// A wrong signature consumes the token. CAS races here are
		// ignored: the token is terminal either way.
		if ferr := s.store.Transition(ctx, token.TokenID, models.TokenStatusPending, models.TokenStatusFailed, nil, &clientIP); ferr != nil && !errors.Is(ferr, database.ErrStaleState) {
			s.logger.Warn("Failed to mark token failed", zap.String("token_id", token.TokenID), zap.Error(ferr))
		}
		return nil, ErrSignatureInvalid
	}

	if owner, err := s.users.GetByWallet(ctx, wallet); err == nil {
		if owner.UserID != token.UserID {
			return nil, ErrWalletTaken
		}
	} else if !errors.Is(err, database.ErrUserNotFound) {
		return nil, s.storeFailure("check wallet owner", err)
	}

	// One transaction consumes the token and links the wallet: a failure on
	// either side leaves neither write behind.
	err = s.store.ConsumeAndLink(ctx, token.TokenID, token.UserID, wallet, clientIP)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrStaleState):
			return nil, ErrAlreadyProcessed
		case errors.Is(err, database.ErrWalletTaken):
			return nil, ErrWalletTaken
		default:
			return nil, s.storeFailure("consume token", err)
		}
	}

	token.Status = models.TokenStatusSuccess
	token.WalletAddress = &wallet

	s.logger.Info("Wallet verification completed",
		zap.Int64("user_id", token.UserID),
		zap.String("wallet", wallet),
	)

	// Fire-and-forget: the bot grants the role and messages the user. A
	// short detached deadline keeps the publish from outliving the request
	// by much without tying it to the request context.
	event := VerifiedEvent{UserID: token.UserID, WalletAddress: wallet, VerifiedAt: s.now().UTC()}
	go func() {
		notifyCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.notifier.NotifyVerified(notifyCtx, event)
	}()

	return token, nil
}

func (s *VerificationService) storeFailure(op string, err error) error {
	s.logger.Error("Store operation failed", zap.String("op", op), zap.Error(err))
	return fmt.Errorf("%w: %s", ErrStoreUnavailable, op)
}
