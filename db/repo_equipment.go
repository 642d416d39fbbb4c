package db

import (
	"context"

	"equipment_lending/models"
)

func (r *Repo) GetEquipment(ctx context.Context, id string) (*models.Equipment, error) {
	if err := validID("equipment", id); err != nil {
		return nil, err
	}
	var eq models.Equipment
	if err := r.DB.WithContext(ctx).First(&eq, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "equipment", id)
	}
	return &eq, nil
}

func (r *Repo) ListEquipment(ctx context.Context) ([]models.Equipment, error) {
	var items []models.Equipment
	err := r.DB.WithContext(ctx).Order("name ASC, id ASC").Find(&items).Error
	return items, err
}

func (r *Repo) CreateEquipment(ctx context.Context, eq *models.Equipment) error {
	return r.DB.WithContext(ctx).Create(eq).Error
}

func (r *Repo) UpdateEquipment(ctx context.Context, eq *models.Equipment) error {
	return r.DB.WithContext(ctx).Model(&models.Equipment{}).
		Where("id = ?", eq.ID).
		Updates(map[string]any{
			"name":           eq.Name,
			"total_quantity": eq.TotalQuantity,
			"updated_at":     eq.UpdatedAt,
		}).Error
}

func (r *Repo) SetEquipmentAvailable(ctx context.Context, id string, available bool) error {
	return r.DB.WithContext(ctx).Model(&models.Equipment{}).
		Where("id = ?", id).
		Update("available", available).Error
}
