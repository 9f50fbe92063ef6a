package models

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ResetCodeTTL is how long a password-reset verification code stays valid.
const ResetCodeTTL = 15 * time.Minute

type User struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	FullName           string         `gorm:"type:varchar(150)" json:"fullName" validate:"required,min=3,max=150"`
	Email              string         `gorm:"uniqueIndex;type:varchar(200)" json:"email" validate:"required,email,min=5,max=200"`
	NIDNumber          string         `gorm:"uniqueIndex;type:varchar(30)" json:"nidNumber" validate:"required,min=8,max=30"`
	ContactNumber      string         `gorm:"type:varchar(30)" json:"contactNumber" validate:"required,min=6,max=30"`
	PhotoURL           string         `gorm:"type:varchar(255);default:null" json:"photoUrl" validate:"max=255"`
	Password           string         `gorm:"type:text" json:"-" validate:"required,min=6"`
	ResetCode          string         `gorm:"type:varchar(10);default:null" json:"-"`
	ResetCodeExpiresAt *time.Time     `gorm:"type:timestamp;default:null" json:"-"`
	CreatedAt          time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

// CreateUser builds a validated user with the password already hashed.
// Email is stored lowercased so the unique index is case-insensitive.
func CreateUser(fullName, email, nidNumber, contactNumber, password string) (*User, error) {
	pw, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &User{
		FullName:      fullName,
		Email:         strings.ToLower(strings.TrimSpace(email)),
		NIDNumber:     strings.TrimSpace(nidNumber),
		ContactNumber: strings.TrimSpace(contactNumber),
		Password:      pw,
	}

	// validate against the plaintext length rule before the hash replaces it
	if len(password) < 6 {
		return nil, fmt.Errorf("password must be at least 6 characters")
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}

	return u, nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

	return string(bytes), err
}

// CheckPasswordHash compares the given password with the stored hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))

	return err == nil
}

// CheckPassword verifies if the provided password matches the user's stored password
func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.Password)
}

// SetPassword hashes and sets a new password for the user
func (u *User) SetPassword(password string) error {
	hashedPassword, err := HashPassword(password)
	if err != nil {
		return err
	}
	u.Password = hashedPassword
	return nil
}

// GenerateResetCode creates a 6-digit verification code and stamps its expiry.
func (u *User) GenerateResetCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	u.ResetCode = fmt.Sprintf("%06d", n.Int64())
	expires := time.Now().Add(ResetCodeTTL)
	u.ResetCodeExpiresAt = &expires
	return u.ResetCode, nil
}

// IsResetCodeValid checks the supplied code against the stored one and its expiry.
func (u *User) IsResetCodeValid(code string) bool {
	if u.ResetCode == "" || u.ResetCodeExpiresAt == nil {
		return false
	}
	if u.ResetCode != code {
		return false
	}
	return time.Now().Before(*u.ResetCodeExpiresAt)
}

// ClearResetCode invalidates any outstanding verification code.
func (u *User) ClearResetCode() {
	u.ResetCode = ""
	u.ResetCodeExpiresAt = nil
}
