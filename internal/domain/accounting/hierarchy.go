package accounting

import (
	"fmt"
	"sort"
	"strings"

	"github.com/erp/posting/internal/domain/shared"
	"github.com/google/uuid"
)

// PathSeparator joins account numbers in a materialized path
const PathSeparator = "."

// hierarchyNode is the slice of an account the hierarchy functions need
type hierarchyNode struct {
	id       uuid.UUID
	parentID *uuid.UUID
	number   string
}

// AccountSnapshot is an immutable arena of a tenant's accounts keyed by id.
// Hierarchy functions operate only on a snapshot passed to them, never on shared state,
// so a proposed change can be evaluated without touching the stored accounts.
type AccountSnapshot struct {
	nodes map[uuid.UUID]hierarchyNode
}

// HierarchyPosition is the computed placement of an account in the tree
type HierarchyPosition struct {
	Depth int
	Path  string
}

// NewAccountSnapshot captures the parent links and numbers of accounts
func NewAccountSnapshot(accounts []*Account) AccountSnapshot {
	nodes := make(map[uuid.UUID]hierarchyNode, len(accounts))
	for _, a := range accounts {
		nodes[a.ID] = hierarchyNode{id: a.ID, parentID: copyID(a.ParentAccountID), number: a.AccountNumber}
	}
	return AccountSnapshot{nodes: nodes}
}

// Len returns the number of accounts in the snapshot
func (s AccountSnapshot) Len() int { return len(s.nodes) }

// Contains reports whether id is part of the snapshot
func (s AccountSnapshot) Contains(id uuid.UUID) bool {
	_, ok := s.nodes[id]
	return ok
}

// WithAccount returns a copy of the snapshot that includes (or replaces) a.
func (s AccountSnapshot) WithAccount(a *Account) AccountSnapshot {
	next := s.clone()
	next.nodes[a.ID] = hierarchyNode{id: a.ID, parentID: copyID(a.ParentAccountID), number: a.AccountNumber}
	return next
}

// WithParent returns a copy of the snapshot with id re-pointed at parentID.
func (s AccountSnapshot) WithParent(id uuid.UUID, parentID *uuid.UUID) AccountSnapshot {
	next := s.clone()
	if n, ok := next.nodes[id]; ok {
		n.parentID = copyID(parentID)
		next.nodes[id] = n
	}
	return next
}

// DetectCycle reports whether pointing accountID at newParentID would create a cycle.
// It must be called before the new parent is persisted.
func DetectCycle(s AccountSnapshot, accountID uuid.UUID, newParentID *uuid.UUID) error {
	if newParentID == nil {
		return nil
	}
	if *newParentID == accountID {
		return ErrCircularHierarchy
	}
	seen := map[uuid.UUID]struct{}{accountID: {}}
	cur := *newParentID
	for {
		if _, loop := seen[cur]; loop {
			return ErrCircularHierarchy
		}
		seen[cur] = struct{}{}
		n, ok := s.nodes[cur]
		if !ok {
			return accountNotFound(cur.String())
		}
		if n.parentID == nil {
			return nil
		}
		cur = *n.parentID
	}
}

// ComputeHierarchy derives depth and path for every account in the snapshot.
// Depth is the number of hops to the root; path joins account numbers from root to node.
func ComputeHierarchy(s AccountSnapshot) (map[uuid.UUID]HierarchyPosition, error) {
	out := make(map[uuid.UUID]HierarchyPosition, len(s.nodes))
	for id := range s.nodes {
		pos, err := s.position(id)
		if err != nil {
			return nil, err
		}
		out[id] = pos
	}
	return out, nil
}

// RecomputeSubtree derives depth and path for rootID and all of its descendants
func RecomputeSubtree(s AccountSnapshot, rootID uuid.UUID) (map[uuid.UUID]HierarchyPosition, error) {
	if !s.Contains(rootID) {
		return nil, accountNotFound(rootID.String())
	}
	rootPos, err := s.position(rootID)
	if err != nil {
		return nil, err
	}
	children := s.childIndex()
	out := map[uuid.UUID]HierarchyPosition{rootID: rootPos}
	queue := []uuid.UUID{rootID}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		parent := out[cur]
		for _, child := range children[cur] {
			if _, dup := out[child]; dup {
				return nil, ErrCircularHierarchy
			}
			out[child] = HierarchyPosition{
				Depth: parent.Depth + 1,
				Path:  parent.Path + PathSeparator + s.nodes[child].number,
			}
			queue = append(queue, child)
		}
	}
	return out, nil
}

// Descendants returns every account below rootID ordered by depth then number
func Descendants(s AccountSnapshot, rootID uuid.UUID) []uuid.UUID {
	children := s.childIndex()
	var out []uuid.UUID
	seen := map[uuid.UUID]struct{}{rootID: {}}
	queue := []uuid.UUID{rootID}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, child := range children[cur] {
			if _, ok := seen[child]; ok {
				continue
			}
			seen[child] = struct{}{}
			out = append(out, child)
			queue = append(queue, child)
		}
	}
	return out
}

// IsDescendant reports whether candidate sits anywhere below ancestor
func IsDescendant(s AccountSnapshot, ancestor, candidate uuid.UUID) bool {
	for _, id := range Descendants(s, ancestor) {
		if id == candidate {
			return true
		}
	}
	return false
}

// ApplyHierarchy writes computed positions onto accounts and returns those that changed
func ApplyHierarchy(accounts []*Account, positions map[uuid.UUID]HierarchyPosition) []*Account {
	var changed []*Account
	for _, a := range accounts {
		pos, ok := positions[a.ID]
		if !ok {
			continue
		}
		if a.Depth != pos.Depth || a.Path != pos.Path {
			a.Depth = pos.Depth
			a.Path = pos.Path
			a.IncrementVersion()
			changed = append(changed, a)
		}
	}
	return changed
}

func (s AccountSnapshot) position(id uuid.UUID) (HierarchyPosition, error) {
	var chain []string
	seen := make(map[uuid.UUID]struct{})
	cur := id
	for {
		if _, loop := seen[cur]; loop {
			return HierarchyPosition{}, shared.NewDomainError(CodeCircularHierarchy,
				fmt.Sprintf("cycle detected at account %s", cur))
		}
		seen[cur] = struct{}{}
		n, ok := s.nodes[cur]
		if !ok {
			return HierarchyPosition{}, accountNotFound(cur.String())
		}
		chain = append(chain, n.number)
		if n.parentID == nil {
			break
		}
		cur = *n.parentID
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return HierarchyPosition{Depth: len(chain) - 1, Path: strings.Join(chain, PathSeparator)}, nil
}

func (s AccountSnapshot) childIndex() map[uuid.UUID][]uuid.UUID {
	idx := make(map[uuid.UUID][]uuid.UUID)
	for _, n := range s.nodes {
		if n.parentID != nil {
			idx[*n.parentID] = append(idx[*n.parentID], n.id)
		}
	}
	for parent := range idx {
		kids := idx[parent]
		sort.Slice(kids, func(i, j int) bool { return s.nodes[kids[i]].number < s.nodes[kids[j]].number })
	}
	return idx
}

func (s AccountSnapshot) clone() AccountSnapshot {
	nodes := make(map[uuid.UUID]hierarchyNode, len(s.nodes)+1)
	for k, v := range s.nodes {
		nodes[k] = v
	}
	return AccountSnapshot{nodes: nodes}
}

func copyID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

// AccountTreeNode is an account with its children, for tree views
type AccountTreeNode struct {
	Account  *Account
	Children []*AccountTreeNode
}

// BuildTree arranges accounts into root nodes ordered by account number.
// Accounts whose parent is missing from the list are treated as roots.
func BuildTree(accounts []*Account) []*AccountTreeNode {
	nodes := make(map[uuid.UUID]*AccountTreeNode, len(accounts))
	for _, a := range accounts {
		nodes[a.ID] = &AccountTreeNode{Account: a}
	}
	var roots []*AccountTreeNode
	for _, a := range accounts {
		n := nodes[a.ID]
		if a.ParentAccountID != nil {
			if parent, ok := nodes[*a.ParentAccountID]; ok {
				parent.Children = append(parent.Children, n)
				continue
			}
		}
		roots = append(roots, n)
	}
	var sortNodes func([]*AccountTreeNode)
	sortNodes = func(list []*AccountTreeNode) {
		sort.Slice(list, func(i, j int) bool { return list[i].Account.AccountNumber < list[j].Account.AccountNumber })
		for _, n := range list {
			sortNodes(n.Children)
		}
	}
	sortNodes(roots)
	return roots
}
