package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/stanmart1/rest-empire-sub000/internal/models"

	"gorm.io/gorm"
)

var (
	ErrCycleDetected    = errors.New("sponsor change would create a cycle")
	ErrSponsorNotFound  = errors.New("sponsor does not exist")
	ErrChainTooDeep     = errors.New("sponsor chain exceeds maximum depth")
)

// maxChainDepth bounds ancestor walks. The tree is a forest by invariant, so
// hitting this means corrupted data, not a legitimate chain.
const maxChainDepth = 10000

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(u *models.User) error {
	return r.db.Create(u).Error
}

func (r *UserRepository) GetByID(id uint) (*models.User, error) {
	var u models.User
	if err := r.db.First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(email string) (*models.User, error) {
	var u models.User
	if err := r.db.Where("email = ?", email).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByUsername(username string) (*models.User, error) {
	var u models.User
	if err := r.db.Where("username = ?", username).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) Update(u *models.User) error {
	return r.db.Save(u).Error
}

// TreeRow is the lightweight projection the turnover aggregator loads for the
// whole forest in one query.
type TreeRow struct {
	ID          uint
	SponsorID   *uint
	RankID      uint
	ActiveUntil *time.Time
	CreatedAt   time.Time
}

// ListTreeRows returns id/sponsor/activity data for every user. A single
// SELECT so the aggregator always sees a consistent snapshot of the forest.
func (r *UserRepository) ListTreeRows() ([]TreeRow, error) {
	var rows []TreeRow
	err := r.db.Model(&models.User{}).
		Select("id", "sponsor_id", "rank_id", "active_until", "created_at").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

// SponsorChain walks from userID's direct sponsor up to the root, bottom-up.
// Carries a visited guard: insertion-time checks should make cycles
// impossible, but a corrupted chain must surface as ErrCycleDetected rather
// than hang.
func (r *UserRepository) SponsorChain(userID uint) ([]models.User, error) {
	u, err := r.GetByID(userID)
	if err != nil {
		return nil, err
	}
	visited := map[uint]bool{u.ID: true}
	var chain []models.User
	next := u.SponsorID
	for next != nil {
		if visited[*next] {
			return nil, fmt.Errorf("user %d: %w", userID, ErrCycleDetected)
		}
		if len(chain) >= maxChainDepth {
			return nil, fmt.Errorf("user %d: %w", userID, ErrChainTooDeep)
		}
		var s models.User
		if err := r.db.First(&s, *next).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("user %d references missing sponsor %d: %w", userID, *next, ErrSponsorNotFound)
			}
			return nil, err
		}
		visited[s.ID] = true
		chain = append(chain, s)
		next = s.SponsorID
	}
	return chain, nil
}

// AssignSponsor sets userID's sponsor after checking the move would not close
// a cycle (the new sponsor must not be in userID's own subtree).
func (r *UserRepository) AssignSponsor(userID, sponsorID uint) error {
	if userID == sponsorID {
		return ErrCycleDetected
	}
	if _, err := r.GetByID(sponsorID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSponsorNotFound
		}
		return err
	}
	// Walk up from the candidate sponsor; if we reach userID the candidate
	// sits below it and the assignment would create a cycle.
	cur := sponsorID
	for depth := 0; depth < maxChainDepth; depth++ {
		var s models.User
		if err := r.db.Select("id", "sponsor_id").First(&s, cur).Error; err != nil {
			break // dangling link: the chain ends, no cycle through userID
		}
		if s.SponsorID == nil {
			break
		}
		if *s.SponsorID == userID {
			return ErrCycleDetected
		}
		cur = *s.SponsorID
	}
	return r.db.Model(&models.User{}).Where("id = ?", userID).
		UpdateColumn("sponsor_id", sponsorID).Error
}

// ExtendActivity pushes active_until out to `until` for the given users,
// never pulling an expiry back. Max semantics in a single UPDATE keeps
// concurrent extensions commutative.
func (r *UserRepository) ExtendActivity(userIDs []uint, until time.Time) error {
	if len(userIDs) == 0 {
		return nil
	}
	return r.db.Model(&models.User{}).
		Where("id IN ?", userIDs).
		Where("active_until IS NULL OR active_until < ?", until).
		UpdateColumn("active_until", until).Error
}

// UpdateRank persists the sweep result for one user.
func (r *UserRepository) UpdateRank(userID, rankID, highestRankID uint) error {
	return r.db.Model(&models.User{}).Where("id = ?", userID).
		UpdateColumns(map[string]interface{}{
			"rank_id":         rankID,
			"highest_rank_id": highestRankID,
		}).Error
}

// ListDirectChildren returns the direct downline of a user, oldest first.
func (r *UserRepository) ListDirectChildren(userID uint) ([]models.User, error) {
	var list []models.User
	err := r.db.Where("sponsor_id = ?", userID).Order("created_at ASC").Find(&list).Error
	return list, err
}
