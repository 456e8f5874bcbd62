package repository

import (
	"context"
	"errors"

	"hoctuthien/internal/model"

	"gorm.io/gorm"
)

type CampaignRepository struct {
	db *gorm.DB
}

func NewCampaignRepository(db *gorm.DB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

func (r *CampaignRepository) Create(ctx context.Context, campaign *model.CharityCampaign) error {
	return r.db.WithContext(ctx).Create(campaign).Error
}

func (r *CampaignRepository) GetByID(ctx context.Context, id int64) (*model.CharityCampaign, error) {
	var campaign model.CharityCampaign
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&campaign).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCampaignNotFound
		}
		return nil, err
	}
	return &campaign, nil
}

// FirstActive picks the lowest-id active campaign. There is no balancing between campaigns.
func (r *CampaignRepository) FirstActive(ctx context.Context) (*model.CharityCampaign, error) {
	var campaign model.CharityCampaign
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("id ASC").
		First(&campaign).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoActiveCampaign
		}
		return nil, err
	}
	return &campaign, nil
}

func (r *CampaignRepository) ListByIDs(ctx context.Context, ids []int64) ([]*model.CharityCampaign, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var campaigns []*model.CharityCampaign
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&campaigns).Error
	return campaigns, err
}
