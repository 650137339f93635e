package application

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/fooddelivery/internal/restaurant/domain"
)

type fakeRestaurantRepo struct {
	restaurants map[uint]*domain.Restaurant
	nextID      uint
}

func newFakeRestaurantRepo() *fakeRestaurantRepo {
	return &fakeRestaurantRepo{restaurants: make(map[uint]*domain.Restaurant), nextID: 1}
}

func (f *fakeRestaurantRepo) Create(_ context.Context, r *domain.Restaurant) error {
	r.ID = f.nextID
	f.nextID++
	f.restaurants[r.ID] = r
	return nil
}

func (f *fakeRestaurantRepo) GetByID(_ context.Context, id uint) (*domain.Restaurant, error) {
	r, ok := f.restaurants[id]
	if !ok {
		return nil, domain.ErrRestaurantNotFound
	}
	return r, nil
}

func (f *fakeRestaurantRepo) GetByUserID(_ context.Context, userID uint) (*domain.Restaurant, error) {
	for _, r := range f.restaurants {
		if r.UserID == userID {
			return r, nil
		}
	}
	return nil, domain.ErrRestaurantNotFound
}

func (f *fakeRestaurantRepo) Update(_ context.Context, r *domain.Restaurant) error {
	if _, ok := f.restaurants[r.ID]; !ok {
		return domain.ErrRestaurantNotFound
	}
	f.restaurants[r.ID] = r
	return nil
}

func (f *fakeRestaurantRepo) Search(_ context.Context, filter domain.SearchFilter) ([]*domain.Restaurant, int64, error) {
	var out []*domain.Restaurant
	for _, r := range f.restaurants {
		if filter.Cuisine != "" && r.CuisineType != filter.Cuisine {
			continue
		}
		if filter.OnlyOpen && !r.IsOpen {
			continue
		}
		out = append(out, r)
	}
	return out, int64(len(out)), nil
}

func (f *fakeRestaurantRepo) SetTrustBadge(_ context.Context, id uint, enabled bool) error {
	r, ok := f.restaurants[id]
	if !ok {
		return domain.ErrRestaurantNotFound
	}
	r.TrustBadge = enabled
	return nil
}

type fakeMenuRepo struct {
	items  map[uint]*domain.MenuItem
	nextID uint
}

func newFakeMenuRepo() *fakeMenuRepo {
	return &fakeMenuRepo{items: make(map[uint]*domain.MenuItem), nextID: 1}
}

func (f *fakeMenuRepo) Create(_ context.Context, item *domain.MenuItem) error {
	item.ID = f.nextID
	f.nextID++
	f.items[item.ID] = item
	return nil
}

func (f *fakeMenuRepo) GetByID(_ context.Context, id uint) (*domain.MenuItem, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, domain.ErrMenuItemNotFound
	}
	return item, nil
}

func (f *fakeMenuRepo) GetByIDs(_ context.Context, ids []uint) ([]*domain.MenuItem, error) {
	var out []*domain.MenuItem
	for _, id := range ids {
		if item, ok := f.items[id]; ok {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeMenuRepo) ListByRestaurant(_ context.Context, restaurantID uint, onlyAvailable bool) ([]*domain.MenuItem, error) {
	var out []*domain.MenuItem
	for _, item := range f.items {
		if item.RestaurantID != restaurantID {
			continue
		}
		if onlyAvailable && !item.IsAvailable {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func (f *fakeMenuRepo) Update(_ context.Context, item *domain.MenuItem) error {
	if _, ok := f.items[item.ID]; !ok {
		return domain.ErrMenuItemNotFound
	}
	f.items[item.ID] = item
	return nil
}

func (f *fakeMenuRepo) Delete(_ context.Context, id uint) error {
	if _, ok := f.items[id]; !ok {
		return domain.ErrMenuItemNotFound
	}
	delete(f.items, id)
	return nil
}

type fakeAuditor struct {
	records []string
}

func (f *fakeAuditor) RecordAdminAction(_ context.Context, _ uint, actionType, _ string, _ uint, _, _ string) error {
	f.records = append(f.records, actionType)
	return nil
}

func newTestRestaurantService() (*RestaurantService, *fakeRestaurantRepo, *fakeMenuRepo, *fakeAuditor) {
	restaurants := newFakeRestaurantRepo()
	menu := newFakeMenuRepo()
	audit := &fakeAuditor{}
	return NewRestaurantService(restaurants, menu, audit), restaurants, menu, audit
}

func TestCreateRestaurant(t *testing.T) {
	svc, _, _, _ := newTestRestaurantService()

	r, err := svc.CreateRestaurant(context.Background(), CreateRestaurantCommand{
		UserID: 7, Name: "Spice Route", Address: "1 Main St", CuisineType: "indian",
	})
	if err != nil {
		t.Fatalf("CreateRestaurant: %v", err)
	}
	if !r.IsOpen {
		t.Error("new restaurant should be open")
	}
	if r.AvgPrepTime != 30 {
		t.Errorf("avg_prep_time = %d, want 30", r.AvgPrepTime)
	}
	if !r.CommissionRate.Equal(decimal.NewFromInt(15)) {
		t.Errorf("commission_rate = %s, want 15", r.CommissionRate)
	}

	if _, err := svc.CreateRestaurant(context.Background(), CreateRestaurantCommand{
		UserID: 7, Name: "Second", Address: "2 Main St",
	}); !errors.Is(err, domain.ErrRestaurantExists) {
		t.Errorf("duplicate error = %v, want ErrRestaurantExists", err)
	}
}

func TestMenuItemOwnership(t *testing.T) {
	svc, _, _, _ := newTestRestaurantService()

	if _, err := svc.CreateRestaurant(context.Background(), CreateRestaurantCommand{
		UserID: 1, Name: "A", Address: "a",
	}); err != nil {
		t.Fatalf("CreateRestaurant: %v", err)
	}
	if _, err := svc.CreateRestaurant(context.Background(), CreateRestaurantCommand{
		UserID: 2, Name: "B", Address: "b",
	}); err != nil {
		t.Fatalf("CreateRestaurant: %v", err)
	}

	item, err := svc.AddMenuItem(context.Background(), 1, MenuItemCommand{
		Name: "Dal", Price: decimal.NewFromFloat(120.50),
	})
	if err != nil {
		t.Fatalf("AddMenuItem: %v", err)
	}
	if item.PrepTime != 15 {
		t.Errorf("prep_time = %d, want default 15", item.PrepTime)
	}

	// 其他商家不能动别人的菜品
	if _, err := svc.UpdateMenuItem(context.Background(), 2, item.ID, MenuItemCommand{
		Name: "Hijacked", Price: decimal.NewFromInt(1),
	}); !errors.Is(err, domain.ErrNotOwner) {
		t.Errorf("cross-owner update error = %v, want ErrNotOwner", err)
	}
	if err := svc.DeleteMenuItem(context.Background(), 2, item.ID); !errors.Is(err, domain.ErrNotOwner) {
		t.Errorf("cross-owner delete error = %v, want ErrNotOwner", err)
	}

	updated, err := svc.SetMenuItemAvailability(context.Background(), 1, item.ID, false)
	if err != nil {
		t.Fatalf("SetMenuItemAvailability: %v", err)
	}
	if updated.IsAvailable {
		t.Error("item should be unavailable")
	}
}

func TestListMenuOnlyAvailable(t *testing.T) {
	svc, _, menu, _ := newTestRestaurantService()

	r, err := svc.CreateRestaurant(context.Background(), CreateRestaurantCommand{
		UserID: 3, Name: "C", Address: "c",
	})
	if err != nil {
		t.Fatalf("CreateRestaurant: %v", err)
	}

	for i, available := range []bool{true, false, true} {
		menu.items[uint(100+i)] = &domain.MenuItem{
			RestaurantID: r.ID,
			Name:         "item",
			Price:        decimal.NewFromInt(10),
			IsAvailable:  available,
		}
	}

	available, err := svc.ListMenu(context.Background(), r.ID, true)
	if err != nil {
		t.Fatalf("ListMenu: %v", err)
	}
	if len(available) != 2 {
		t.Errorf("available items = %d, want 2", len(available))
	}

	all, err := svc.ListMenu(context.Background(), r.ID, false)
	if err != nil {
		t.Fatalf("ListMenu all: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("all items = %d, want 3", len(all))
	}
}

func TestSetTrustBadgeAudited(t *testing.T) {
	svc, repo, _, audit := newTestRestaurantService()

	r, err := svc.CreateRestaurant(context.Background(), CreateRestaurantCommand{
		UserID: 4, Name: "D", Address: "d",
	})
	if err != nil {
		t.Fatalf("CreateRestaurant: %v", err)
	}

	if err := svc.SetTrustBadge(context.Background(), 99, r.ID, true, "10.0.0.1"); err != nil {
		t.Fatalf("SetTrustBadge: %v", err)
	}
	if !repo.restaurants[r.ID].TrustBadge {
		t.Error("trust badge not set")
	}
	if len(audit.records) != 1 || audit.records[0] != "toggle_trust_badge" {
		t.Errorf("audit records = %v", audit.records)
	}

	if err := svc.SetTrustBadge(context.Background(), 99, 12345, true, ""); !errors.Is(err, domain.ErrRestaurantNotFound) {
		t.Errorf("missing restaurant error = %v, want ErrRestaurantNotFound", err)
	}
}
