package service

import (
	"fmt"
	"log"
	"time"

	"github.com/stanmart1/rest-empire-sub000/internal/domain"
	"github.com/stanmart1/rest-empire-sub000/internal/monitoring"
	"github.com/stanmart1/rest-empire-sub000/internal/repository"
)

// TreeNode is one user inside a TreeSnapshot.
type TreeNode struct {
	ID           uint
	SponsorID    *uint
	RankID       uint
	ActiveUntil  *time.Time
	RegisteredAt time.Time
	Children     []uint
}

// TreeSnapshot is a consistent in-memory view of the sponsor forest plus each
// user's own purchase volume in one measurement window. It is built from two
// queries and never touched again, so traversals can't observe a half-updated
// tree.
type TreeSnapshot struct {
	WindowStart time.Time
	WindowEnd   time.Time

	nodes  map[uint]*TreeNode
	volume map[uint]int64 // own purchase volume per user
	roots  []uint

	// subtree sums are memoized; the snapshot is immutable so they never go stale
	subtree map[uint]int64
}

// NewTreeSnapshot assembles a snapshot from raw rows. Nodes whose sponsor
// reference points at a missing user are reported in the second return value;
// they are treated as detached roots rather than failing the whole build.
func NewTreeSnapshot(rows []repository.TreeRow, volume map[uint]int64, windowStart, windowEnd time.Time) (*TreeSnapshot, []uint) {
	ts := &TreeSnapshot{
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		nodes:       make(map[uint]*TreeNode, len(rows)),
		volume:      volume,
		subtree:     make(map[uint]int64),
	}
	for _, r := range rows {
		ts.nodes[r.ID] = &TreeNode{
			ID:           r.ID,
			SponsorID:    r.SponsorID,
			RankID:       r.RankID,
			ActiveUntil:  r.ActiveUntil,
			RegisteredAt: r.CreatedAt,
		}
	}
	var orphans []uint
	for _, n := range ts.nodes {
		if n.SponsorID == nil {
			ts.roots = append(ts.roots, n.ID)
			continue
		}
		parent, ok := ts.nodes[*n.SponsorID]
		if !ok {
			orphans = append(orphans, n.ID)
			ts.roots = append(ts.roots, n.ID)
			continue
		}
		parent.Children = append(parent.Children, n.ID)
	}
	return ts, orphans
}

// Node returns the snapshot node for a user, or nil.
func (ts *TreeSnapshot) Node(id uint) *TreeNode { return ts.nodes[id] }

// Size returns the number of users in the snapshot.
func (ts *TreeSnapshot) Size() int { return len(ts.nodes) }

// UserIDs returns every user in the snapshot.
func (ts *TreeSnapshot) UserIDs() []uint {
	ids := make([]uint, 0, len(ts.nodes))
	for id := range ts.nodes {
		ids = append(ids, id)
	}
	return ids
}

// OwnVolume returns the user's own purchase volume in the window.
func (ts *TreeSnapshot) OwnVolume(id uint) int64 { return ts.volume[id] }

// SubtreeTurnover sums the window volume of a user and their entire downline.
// The visited guard keeps a corrupted (cyclic) graph from hanging the walk;
// revisited nodes are counted once.
func (ts *TreeSnapshot) SubtreeTurnover(root uint) int64 {
	if v, ok := ts.subtree[root]; ok {
		return v
	}
	visited := make(map[uint]bool)
	total := ts.walk(root, visited)
	ts.subtree[root] = total
	return total
}

func (ts *TreeSnapshot) walk(id uint, visited map[uint]bool) int64 {
	if visited[id] {
		return 0
	}
	visited[id] = true
	n, ok := ts.nodes[id]
	if !ok {
		return 0
	}
	total := ts.volume[id]
	for _, c := range n.Children {
		total += ts.walk(c, visited)
	}
	return total
}

// LegTurnovers returns the turnover of each of the user's legs, keyed by the
// leg leader (direct child). Legs partition the downline exhaustively and
// disjointly, so their sum equals TotalTurnover.
func (ts *TreeSnapshot) LegTurnovers(userID uint) map[uint]int64 {
	n, ok := ts.nodes[userID]
	if !ok {
		return nil
	}
	legs := make(map[uint]int64, len(n.Children))
	for _, c := range n.Children {
		legs[c] = ts.SubtreeTurnover(c)
	}
	return legs
}

// TotalTurnover is the user's team turnover: the whole downline's window
// volume, excluding the user's own purchases.
func (ts *TreeSnapshot) TotalTurnover(userID uint) int64 {
	return ts.SubtreeTurnover(userID) - ts.volume[userID]
}

// TurnoverService builds tree snapshots from storage.
type TurnoverService struct {
	userRepo      *repository.UserRepository
	txRepo        *repository.TransactionRepository
	integrityRepo *repository.IntegrityRepository
}

func NewTurnoverService(userRepo *repository.UserRepository, txRepo *repository.TransactionRepository, integrityRepo *repository.IntegrityRepository) *TurnoverService {
	return &TurnoverService{userRepo: userRepo, txRepo: txRepo, integrityRepo: integrityRepo}
}

// BuildSnapshot loads the forest and the window's per-user volume. Dangling
// sponsor references are flagged for manual review and excluded from their
// (missing) parent's legs instead of failing the whole computation.
func (s *TurnoverService) BuildSnapshot(windowStart, windowEnd time.Time) (*TreeSnapshot, error) {
	rows, err := s.userRepo.ListTreeRows()
	if err != nil {
		return nil, fmt.Errorf("load tree: %w", err)
	}
	volume, err := s.txRepo.SumPurchasesByUser(windowStart, windowEnd)
	if err != nil {
		return nil, fmt.Errorf("load turnover: %w", err)
	}
	snapshot, orphans := NewTreeSnapshot(rows, volume, windowStart, windowEnd)
	for _, id := range orphans {
		detail := "sponsor reference points at a missing user"
		if n := snapshot.Node(id); n != nil && n.SponsorID != nil {
			detail = fmt.Sprintf("sponsor %d does not exist", *n.SponsorID)
		}
		log.Printf("[turnover] user %d: %s, excluded from legs", id, detail)
		monitoring.IntegrityWarningsTotal.Inc()
		if s.integrityRepo != nil {
			_ = s.integrityRepo.Flag(id, domain.FlagBrokenSponsorLink, detail)
		}
	}
	return snapshot, nil
}
