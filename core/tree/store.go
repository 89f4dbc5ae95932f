package tree

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AltCodec converts external ids to and from their persisted form.
type AltCodec[A comparable] interface {
	Encode(id A) string
	Decode(s string) (A, error)
}

// StringCodec persists string external ids as-is.
type StringCodec struct{}

func (StringCodec) Encode(id string) string         { return id }
func (StringCodec) Decode(s string) (string, error) { return s, nil }

// Uint64Codec persists numeric external ids (e.g. inode numbers) in decimal.
type Uint64Codec struct{}

func (Uint64Codec) Encode(id uint64) string { return strconv.FormatUint(id, 10) }

func (Uint64Codec) Decode(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseUint(s, 10, 64)
}

// NodeRecord is the persisted form of a node.
type NodeRecord struct {
	Scope         string `gorm:"primaryKey;size:64"`
	ID            int64  `gorm:"primaryKey;autoIncrement:false"`
	ParentID      int64  `gorm:"index"`
	Name          string `gorm:"size:255"`
	Type          uint8
	VolumeID      uint32
	AltID         string `gorm:"size:255;index"`
	Status        uint16
	Size          int64
	LastWriteTime time.Time
	CreationTime  time.Time
	ContentHash   string `gorm:"size:128"`
}

// TableName overrides the GORM table name.
func (NodeRecord) TableName() string {
	return "tree_nodes"
}

// StateRecord keeps per-tree counters.
type StateRecord struct {
	Scope  string `gorm:"primaryKey;size:64"`
	NextID int64
}

// TableName overrides the GORM table name.
func (StateRecord) TableName() string {
	return "tree_states"
}

// Store persists one tree, identified by scope, in a GORM database.
type Store[I ID, A comparable] struct {
	db    *gorm.DB
	scope string
	codec AltCodec[A]
}

// NewStore creates a store. Several trees can share a database under different scopes.
func NewStore[I ID, A comparable](db *gorm.DB, scope string, codec AltCodec[A]) *Store[I, A] {
	return &Store[I, A]{db: db, scope: scope, codec: codec}
}

// Migrate creates or updates the tables.
func (s *Store[I, A]) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&NodeRecord{}, &StateRecord{}); err != nil {
		return fmt.Errorf("failed to migrate tree tables: %w", err)
	}
	return nil
}

// Load reads the persisted tree. An empty scope yields an empty tree.
func (s *Store[I, A]) Load(ctx context.Context) (*Tree[I, A], error) {
	var state StateRecord
	err := s.db.WithContext(ctx).Where("scope = ?", s.scope).Take(&state).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load tree state: %w", err)
	}

	var records []NodeRecord
	if err := s.db.WithContext(ctx).
		Where("scope = ?", s.scope).
		Order("id").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to load tree nodes: %w", err)
	}

	models := make([]Model[I, A], 0, len(records))
	for _, r := range records {
		m, err := s.toModel(r)
		if err != nil {
			return nil, err
		}
		models = append(models, m)
	}

	t := New[I, A]()
	if err := t.Restore(orderParentsFirst(models), I(state.NextID)); err != nil {
		return nil, fmt.Errorf("failed to restore tree: %w", err)
	}
	return t, nil
}

// Apply persists the given operations and the next id in one transaction.
func (s *Store[I, A]) Apply(ctx context.Context, ops []Operation[I, A], nextID I) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, op := range ops {
			switch op.Type {
			case OpCreate, OpUpdate:
				rec := s.toRecord(*op.After)
				if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rec).Error; err != nil {
					return fmt.Errorf("failed to persist %s of node %v: %w", op.Type, op.After.ID, err)
				}
			case OpDelete:
				if err := tx.Where("scope = ? AND id = ?", s.scope, int64(op.Before.ID)).
					Delete(&NodeRecord{}).Error; err != nil {
					return fmt.Errorf("failed to persist delete of node %v: %w", op.Before.ID, err)
				}
			}
		}
		state := StateRecord{Scope: s.scope, NextID: int64(nextID)}
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&state).Error; err != nil {
			return fmt.Errorf("failed to persist tree state: %w", err)
		}
		return nil
	})
}

func (s *Store[I, A]) toRecord(m Model[I, A]) NodeRecord {
	return NodeRecord{
		Scope:         s.scope,
		ID:            int64(m.ID),
		ParentID:      int64(m.ParentID),
		Name:          m.Name,
		Type:          uint8(m.Type),
		VolumeID:      uint32(m.AltID.VolumeID),
		AltID:         s.codec.Encode(m.AltID.ID),
		Status:        uint16(m.Status),
		Size:          m.Attributes.Size,
		LastWriteTime: m.Attributes.LastWriteTime,
		CreationTime:  m.Attributes.CreationTime,
		ContentHash:   m.Attributes.ContentHash,
	}
}

func (s *Store[I, A]) toModel(r NodeRecord) (Model[I, A], error) {
	alt, err := s.codec.Decode(r.AltID)
	if err != nil {
		return Model[I, A]{}, fmt.Errorf("failed to decode alt id of node %d: %w", r.ID, err)
	}
	return Model[I, A]{
		ID:       I(r.ID),
		ParentID: I(r.ParentID),
		Name:     r.Name,
		Type:     NodeType(r.Type),
		AltID:    AltID[A]{VolumeID: VolumeID(r.VolumeID), ID: alt},
		Status:   Status(r.Status),
		Attributes: Attributes{
			Size:          r.Size,
			LastWriteTime: r.LastWriteTime,
			CreationTime:  r.CreationTime,
			ContentHash:   r.ContentHash,
		},
	}, nil
}

// orderParentsFirst sorts models so every parent precedes its children.
// Ids alone are not enough: a node can be moved under a newer directory.
func orderParentsFirst[I ID, A comparable](models []Model[I, A]) []Model[I, A] {
	byParent := make(map[I][]Model[I, A], len(models))
	present := make(map[I]bool, len(models))
	for _, m := range models {
		byParent[m.ParentID] = append(byParent[m.ParentID], m)
		present[m.ID] = true
	}
	out := make([]Model[I, A], 0, len(models))
	var visit func(parent I)
	visit = func(parent I) {
		for _, m := range byParent[parent] {
			out = append(out, m)
			visit(m.ID)
		}
	}
	var root I
	visit(root)
	// Orphans are appended so Restore reports them instead of silently dropping them.
	for _, m := range models {
		if m.ParentID != root && !present[m.ParentID] {
			out = append(out, m)
		}
	}
	return out
}
