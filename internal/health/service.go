package health

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Broadcaster defines the interface for sending WebSocket messages.
type Broadcaster interface {
	Broadcast(msgType string, payload interface{}) error
}

// Service manages the health state of all tracked items.
// All state is in-memory and resets on application restart.
type Service struct {
	items       map[HealthCategory]map[string]*HealthItem
	mu          sync.RWMutex
	broadcaster Broadcaster
	logger      zerolog.Logger
}

// NewService creates a new health service.
func NewService(logger zerolog.Logger) *Service {
	s := &Service{
		items:  make(map[HealthCategory]map[string]*HealthItem),
		logger: logger.With().Str("component", "health").Logger(),
	}

	for _, cat := range AllCategories() {
		s.items[cat] = make(map[string]*HealthItem)
	}

	return s
}

// SetBroadcaster sets the WebSocket broadcaster for real-time updates.
func (s *Service) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// RegisterItemStr is a string-based wrapper for RegisterItem, so callers
// don't need to import the health types.
func (s *Service) RegisterItemStr(category, id, name string) {
	s.RegisterItem(HealthCategory(category), id, name)
}

// SetErrorStr is a string-based wrapper for SetError.
func (s *Service) SetErrorStr(category, id, message string) {
	s.SetError(HealthCategory(category), id, message)
}

// SetWarningStr is a string-based wrapper for SetWarning.
func (s *Service) SetWarningStr(category, id, message string) {
	s.SetWarning(HealthCategory(category), id, message)
}

// ClearStatusStr is a string-based wrapper for ClearStatus.
func (s *Service) ClearStatusStr(category, id string) {
	s.ClearStatus(HealthCategory(category), id)
}

// RegisterItem adds an item to health tracking with OK status.
// Registering an existing item keeps its current status.
func (s *Service) RegisterItem(category HealthCategory, id, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[category]; !ok {
		s.logger.Warn().Str("category", string(category)).Msg("Unknown health category")
		return
	}
	if existing, ok := s.items[category][id]; ok {
		existing.Name = name
		return
	}

	item := &HealthItem{
		ID:       id,
		Category: category,
		Name:     name,
		Status:   StatusOK,
	}
	s.items[category][id] = item

	s.logger.Debug().
		Str("category", string(category)).
		Str("id", id).
		Str("name", name).
		Msg("Registered health item")

	s.broadcastUpdate(item)
}

// UnregisterItem removes an item from health tracking.
func (s *Service) UnregisterItem(category HealthCategory, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[category][id]; exists {
		delete(s.items[category], id)
		s.logger.Debug().
			Str("category", string(category)).
			Str("id", id).
			Msg("Unregistered health item")
	}
}

// SetError sets an item to Error status with a message.
func (s *Service) SetError(category HealthCategory, id, message string) {
	s.setStatus(category, id, StatusError, message)
}

// SetWarning sets an item to Warning status with a message.
func (s *Service) SetWarning(category HealthCategory, id, message string) {
	s.setStatus(category, id, StatusWarning, message)
}

// ClearStatus resets an item to OK status.
func (s *Service) ClearStatus(category HealthCategory, id string) {
	s.setStatus(category, id, StatusOK, "")
}

func (s *Service) setStatus(category HealthCategory, id string, status HealthStatus, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, exists := s.items[category][id]
	if !exists {
		s.logger.Warn().
			Str("category", string(category)).
			Str("id", id).
			Msg("Attempted to update status for unregistered item")
		return
	}

	if item.Status == status && item.Message == message {
		return
	}

	oldStatus := item.Status
	item.Status = status
	item.Message = message
	if status != StatusOK {
		now := time.Now()
		item.Timestamp = &now
	} else {
		item.Timestamp = nil
	}

	s.logger.Info().
		Str("category", string(category)).
		Str("id", id).
		Str("name", item.Name).
		Str("oldStatus", string(oldStatus)).
		Str("newStatus", string(status)).
		Str("message", message).
		Msg("Health status changed")

	s.broadcastUpdate(item)
}

// GetAll returns all health items grouped by category.
func (s *Service) GetAll() *HealthResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return &HealthResponse{
		Metadata: s.itemsToSlice(CategoryMetadata),
		AI:       s.itemsToSlice(CategoryAI),
		Backend:  s.itemsToSlice(CategoryBackend),
	}
}

// GetByCategory returns all items in a specific category.
func (s *Service) GetByCategory(category HealthCategory) []HealthItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.itemsToSlice(category)
}

// GetItem returns a copy of a single item, or nil.
func (s *Service) GetItem(category HealthCategory, id string) *HealthItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if item, exists := s.items[category][id]; exists {
		c := *item
		return &c
	}
	return nil
}

// GetSummary returns counts per category.
func (s *Service) GetSummary() *HealthSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := &HealthSummary{
		Categories: make([]CategorySummary, 0, len(AllCategories())),
	}

	for _, cat := range AllCategories() {
		catSummary := CategorySummary{Category: cat}
		for _, item := range s.items[cat] {
			switch item.Status {
			case StatusOK:
				catSummary.OK++
			case StatusWarning:
				catSummary.Warning++
			case StatusError:
				catSummary.Error++
			}
		}
		if catSummary.HasIssues() {
			summary.HasIssues = true
		}
		summary.Categories = append(summary.Categories, catSummary)
	}

	return summary
}

// IsHealthy returns true if the specified item is OK.
func (s *Service) IsHealthy(category HealthCategory, id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if item, exists := s.items[category][id]; exists {
		return item.Status == StatusOK
	}
	return false
}

// itemsToSlice returns the category's items sorted by ID. Caller holds the lock.
func (s *Service) itemsToSlice(category HealthCategory) []HealthItem {
	items := make([]HealthItem, 0, len(s.items[category]))
	for _, item := range s.items[category] {
		items = append(items, *item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items
}

func (s *Service) broadcastUpdate(item *HealthItem) {
	if s.broadcaster == nil {
		return
	}

	payload := HealthUpdatePayload{
		Category:  item.Category,
		ID:        item.ID,
		Name:      item.Name,
		Status:    item.Status,
		Message:   item.Message,
		Timestamp: item.Timestamp,
	}

	if err := s.broadcaster.Broadcast("health:updated", payload); err != nil {
		s.logger.Error().Err(err).Msg("Failed to broadcast health update")
	}
}
