package storage

import (
	"context"
	"fmt"
	"strings"

	"crewboard/internal/models"
)

// ListPositions returns all positions ordered by name, each annotated
// with the number of workers holding it.
func (s *Store) ListPositions(ctx context.Context) ([]models.PositionSummary, error) {
	db := s.db.WithContext(ctx)

	var positions []models.Position
	if err := db.Order("name").Find(&positions).Error; err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}

	type countRow struct {
		PositionID uint
		N          int64
	}
	var rows []countRow
	err := db.Model(&models.Worker{}).
		Select("position_id, COUNT(*) AS n").
		Where("position_id IS NOT NULL").
		Group("position_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count workers per position: %w", err)
	}

	counts := make(map[uint]int64, len(rows))
	for _, r := range rows {
		counts[r.PositionID] = r.N
	}

	summaries := make([]models.PositionSummary, 0, len(positions))
	for _, p := range positions {
		summaries = append(summaries, models.PositionSummary{Position: p, NumWorkers: counts[p.ID]})
	}
	return summaries, nil
}

// GetPosition fetches a position by id.
func (s *Store) GetPosition(ctx context.Context, id uint) (*models.Position, error) {
	var position models.Position
	if err := s.db.WithContext(ctx).First(&position, id).Error; err != nil {
		return nil, asNotFound(err, "position")
	}
	return &position, nil
}

// CreatePosition adds a position with a unique, non-empty name.
func (s *Store) CreatePosition(ctx context.Context, name string) (*models.Position, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("position name must not be empty")
	}
	if err := s.checkUniquePositionName(ctx, name, 0); err != nil {
		return nil, err
	}

	position := models.Position{Name: name}
	if err := s.db.WithContext(ctx).Create(&position).Error; err != nil {
		return nil, fmt.Errorf("create position: %w", err)
	}
	return &position, nil
}

// UpdatePosition renames a position, keeping the name unique.
func (s *Store) UpdatePosition(ctx context.Context, id uint, name string) (*models.Position, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("position name must not be empty")
	}
	position, err := s.GetPosition(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkUniquePositionName(ctx, name, id); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(position).Update("name", name).Error; err != nil {
		return nil, fmt.Errorf("update position: %w", err)
	}
	return s.GetPosition(ctx, id)
}

// DeletePosition removes a position unless a worker still holds it.
func (s *Store) DeletePosition(ctx context.Context, id uint) error {
	if _, err := s.GetPosition(ctx, id); err != nil {
		return err
	}

	var workers int64
	err := s.db.WithContext(ctx).Model(&models.Worker{}).
		Where("position_id = ?", id).
		Count(&workers).Error
	if err != nil {
		return fmt.Errorf("count position workers: %w", err)
	}
	if workers > 0 {
		return fmt.Errorf("position %d: %w", id, ErrProtected)
	}

	if err := s.db.WithContext(ctx).Delete(&models.Position{}, id).Error; err != nil {
		return fmt.Errorf("delete position: %w", err)
	}
	return nil
}

func (s *Store) checkUniquePositionName(ctx context.Context, name string, exceptID uint) error {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Position{}).
		Where("name = ? AND id <> ?", name, exceptID).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("check position name: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("position %q: %w", name, ErrDuplicateName)
	}
	return nil
}
