package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/stageright/audition-service/internal/calendar"
	"github.com/stageright/audition-service/internal/models"
	"github.com/stageright/audition-service/internal/repository"
)

// CreateSlotSpec describes one audition slot, or a recurring series when
// IsRecurring is set.
type CreateSlotSpec struct {
	ProjectID   uuid.UUID
	CharacterID *uuid.UUID
	CreatedBy   uuid.UUID

	StartTime       time.Time
	DurationMinutes int
	TimeZone        string

	LocationType models.LocationType
	VenueAddress string
	// Opt-in: request a meeting link for virtual/hybrid slots at creation.
	CreateMeetingLink bool

	MaxParticipants int

	IsRecurring     bool
	Recurrence      *calendar.RecurrenceRule
	RecurrenceUntil time.Time
}

type SlotService interface {
	// CreateSlots materializes one slot, or the whole expanded series for a
	// recurring spec. Returned ids are in chronological order; for a series
	// the first id doubles as the shared recurrence id.
	CreateSlots(ctx context.Context, spec CreateSlotSpec) ([]uuid.UUID, error)
	GetSlot(ctx context.Context, id uuid.UUID) (*models.AuditionSlot, error)
	DeactivateSlot(ctx context.Context, id uuid.UUID) error
	ListSlotsByProject(ctx context.Context, projectID uuid.UUID) ([]models.AuditionSlot, error)
}

type slotService struct {
	slotRepo       repository.SlotRepository
	castingRepo    repository.CastingRepository
	provider       calendar.Provider
	maxOccurrences int
}

func NewSlotService(slotRepo repository.SlotRepository, castingRepo repository.CastingRepository, provider calendar.Provider, maxOccurrences int) SlotService {
	return &slotService{
		slotRepo:       slotRepo,
		castingRepo:    castingRepo,
		provider:       provider,
		maxOccurrences: maxOccurrences,
	}
}

func (s *slotService) CreateSlots(ctx context.Context, spec CreateSlotSpec) ([]uuid.UUID, error) {
	if spec.MaxParticipants < 1 {
		return nil, ErrInvalidCapacity
	}
	if spec.DurationMinutes <= 0 {
		return nil, ErrInvalidTimeRange
	}

	if _, err := s.castingRepo.FindProject(ctx, s.castingRepo.GetDB(), spec.ProjectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("load project: %w", err)
	}
	if spec.CharacterID != nil {
		character, err := s.castingRepo.FindCharacter(ctx, s.castingRepo.GetDB(), *spec.CharacterID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrCharacterNotFound
			}
			return nil, fmt.Errorf("load character: %w", err)
		}
		if character.ProjectID != spec.ProjectID {
			return nil, ErrCharacterMismatch
		}
	}

	occurrences := []time.Time{spec.StartTime}
	var ruleJSON datatypes.JSON
	if spec.IsRecurring {
		if spec.Recurrence == nil {
			return nil, calendar.ErrInvalidRule
		}
		var err error
		occurrences, err = calendar.GenerateRecurringSlots(spec.StartTime, *spec.Recurrence, spec.RecurrenceUntil, s.maxOccurrences)
		if err != nil {
			return nil, err
		}
		if len(occurrences) == 0 {
			return nil, calendar.ErrInvalidWindow
		}
		ruleJSON, err = json.Marshal(spec.Recurrence)
		if err != nil {
			return nil, fmt.Errorf("marshal recurrence rule: %w", err)
		}
	}

	duration := time.Duration(spec.DurationMinutes) * time.Minute
	loc := time.UTC
	if spec.TimeZone != "" {
		l, err := time.LoadLocation(spec.TimeZone)
		if err != nil {
			return nil, fmt.Errorf("load time zone %q: %w", spec.TimeZone, err)
		}
		loc = l
	}

	slots := make([]*models.AuditionSlot, 0, len(occurrences))
	var recurrenceID *uuid.UUID
	for _, start := range occurrences {
		slot := &models.AuditionSlot{
			ID:              uuid.New(),
			ProjectID:       spec.ProjectID,
			CharacterID:     spec.CharacterID,
			CreatedBy:       spec.CreatedBy,
			Date:            datatypes.Date(start.In(loc)),
			StartTime:       start,
			EndTime:         start.Add(duration),
			DurationMinutes: spec.DurationMinutes,
			TimeZone:        loc.String(),
			LocationType:    spec.LocationType,
			VenueAddress:    spec.VenueAddress,
			MaxParticipants: spec.MaxParticipants,
			IsActive:        true,
		}
		slot.ComputeAvailability()
		if spec.IsRecurring {
			// The first generated slot anchors the whole group, itself
			// included.
			if recurrenceID == nil {
				id := slot.ID
				recurrenceID = &id
			}
			slot.RecurrenceID = recurrenceID
			slot.RecurrenceRule = ruleJSON
		}
		slots = append(slots, slot)
	}

	if err := s.slotRepo.CreateBatch(ctx, slots); err != nil {
		return nil, fmt.Errorf("create slots: %w", err)
	}

	if spec.CreateMeetingLink && (spec.LocationType == models.LocationVirtual || spec.LocationType == models.LocationHybrid) {
		s.attachMeetingLinks(ctx, spec, slots)
	}

	ids := make([]uuid.UUID, len(slots))
	for i, slot := range slots {
		ids[i] = slot.ID
	}
	return ids, nil
}

// attachMeetingLinks fills meeting links in after the slots are committed.
// Link creation failing leaves the link empty for the calendar-sync job to
// fill in later; the slots stand either way.
func (s *slotService) attachMeetingLinks(ctx context.Context, spec CreateSlotSpec, slots []*models.AuditionSlot) {
	for _, slot := range slots {
		link, err := s.provider.CreateMeetingLink(ctx, spec.CreatedBy, calendar.MeetingRequest{
			Summary:   fmt.Sprintf("Audition %s", slot.StartTime.Format("2006-01-02 15:04")),
			StartTime: slot.StartTime,
			EndTime:   slot.EndTime,
		})
		if err != nil {
			log.Printf("[SlotManager] meeting link creation failed for slot %s: %v", slot.ID, err)
			continue
		}
		if link == "" {
			continue
		}
		if err := s.slotRepo.SetMeetingLink(ctx, slot.ID, link); err != nil {
			log.Printf("[SlotManager] storing meeting link failed for slot %s: %v", slot.ID, err)
			continue
		}
		slot.MeetingLink = link
	}
}

func (s *slotService) GetSlot(ctx context.Context, id uuid.UUID) (*models.AuditionSlot, error) {
	slot, err := s.slotRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}
	return slot, nil
}

func (s *slotService) DeactivateSlot(ctx context.Context, id uuid.UUID) error {
	if _, err := s.slotRepo.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSlotNotFound
		}
		return err
	}
	return s.slotRepo.SetActive(ctx, id, false)
}

func (s *slotService) ListSlotsByProject(ctx context.Context, projectID uuid.UUID) ([]models.AuditionSlot, error) {
	return s.slotRepo.ListByProject(ctx, projectID)
}
