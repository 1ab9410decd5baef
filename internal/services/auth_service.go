package services

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"referral-platform/internal/models"
	"referral-platform/internal/utils"
)

// inviteCodeAttempts bounds the retry loop for unique code generation.
const inviteCodeAttempts = 10

// RegisterInput carries the signup payload.
type RegisterInput struct {
	Nickname           string
	Email              string
	Password           string
	WithdrawalPassword string
	InviteCode         string
}

// AuthService handles signup, login and the signup-time referral linkage
// that builds the recruitment graph.
type AuthService struct {
	db *gorm.DB
	mu sync.Mutex
}

func NewAuthService(db *gorm.DB) *AuthService {
	return &AuthService{db: db}
}

// Register creates a user. When an invitation code is supplied it must
// resolve to an existing user, who becomes the parent: the edge is created
// once here and never changes.
func (s *AuthService) Register(input RegisterInput) (*models.User, error) {
	if input.Password == "" {
		return nil, fmt.Errorf("%w: password is required", ErrValidation)
	}
	if input.WithdrawalPassword == "" {
		return nil, fmt.Errorf("%w: withdrawal password is required", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var parent *models.User
	if input.InviteCode != "" {
		var p models.User
		if err := s.db.Where("invite_code = ?", input.InviteCode).First(&p).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: invalid invitation code", ErrValidation)
			}
			return nil, fmt.Errorf("failed to resolve invitation code: %w", err)
		}
		parent = &p
	}

	nickname := input.Nickname
	if nickname == "" {
		generated, err := utils.GenerateNickname()
		if err != nil {
			return nil, fmt.Errorf("failed to generate nickname: %w", err)
		}
		nickname = generated
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	withdrawalHash, err := bcrypt.GenerateFromPassword([]byte(input.WithdrawalPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash withdrawal password: %w", err)
	}

	code, err := s.uniqueInviteCode()
	if err != nil {
		return nil, err
	}

	user := models.User{
		Nickname:           nickname,
		Email:              input.Email,
		InviteCode:         code,
		PasswordHash:       string(passwordHash),
		WithdrawalPassword: string(withdrawalHash),
		VIPTier:            models.VIPNormal,
	}
	if parent != nil {
		user.ParentUserID = &parent.ID
	}

	if err := s.db.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if parent != nil {
		edge := models.ReferralEdge{ParentID: parent.ID, ChildID: user.ID}
		if err := s.db.Create(&edge).Error; err != nil {
			return nil, fmt.Errorf("failed to create referral edge: %w", err)
		}
		if err := s.db.Model(&models.User{}).Where("id = ?", parent.ID).
			Update("child_count", gorm.Expr("child_count + 1")).Error; err != nil {
			return nil, fmt.Errorf("failed to update parent child count: %w", err)
		}
		log.Printf("New user %d recruited by %d via code %s", user.ID, parent.ID, input.InviteCode)
	} else {
		log.Printf("New user %d registered without referrer", user.ID)
	}

	return &user, nil
}

// Login verifies the nickname/password pair.
func (s *AuthService) Login(nickname, password string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("nickname = ?", nickname).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: unknown user", ErrUnauthorized)
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, fmt.Errorf("%w: wrong password", ErrUnauthorized)
	}
	return &user, nil
}

// uniqueInviteCode generates a code that is not yet taken. The loop is
// bounded: exhausting all attempts is an explicit error, never unbounded
// recursion.
func (s *AuthService) uniqueInviteCode() (string, error) {
	for attempt := 0; attempt < inviteCodeAttempts; attempt++ {
		code, err := utils.GenerateInviteCode()
		if err != nil {
			return "", err
		}
		var count int64
		if err := s.db.Model(&models.User{}).Where("invite_code = ?", code).Count(&count).Error; err != nil {
			return "", fmt.Errorf("failed to check invite code: %w", err)
		}
		if count == 0 {
			return code, nil
		}
	}
	return "", fmt.Errorf("failed to generate a unique invite code after %d attempts", inviteCodeAttempts)
}
