package handlers

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"vetclinic-server/internal/models"
	"vetclinic-server/internal/utils"
)

// PetHandler handles pet registry requests.
type PetHandler struct {
	DB  *gorm.DB
	Log zerolog.Logger
}

// NewPetHandler creates a new PetHandler.
func NewPetHandler(db *gorm.DB, logger zerolog.Logger) *PetHandler {
	return &PetHandler{DB: db, Log: logger}
}

// PetResponse is a Pet plus its derived vaccination status.
type PetResponse struct {
	models.Pet
	VaccinationStatus models.VaccinationStatus `json:"vaccinationStatus"`
}

func toPetResponse(p models.Pet) PetResponse {
	return PetResponse{Pet: p, VaccinationStatus: p.VaccinationStatusAt(time.Now())}
}

// CreatePetRequest represents the request body for registering a pet.
type CreatePetRequest struct {
	Name            string     `json:"name" binding:"required,max=100"`
	Species         string     `json:"species" binding:"required,max=50"`
	Breed           string     `json:"breed" binding:"max=100"`
	DateOfBirth     *time.Time `json:"dateOfBirth"`
	LastVaccination *time.Time `json:"lastVaccination"`
	Notes           string     `json:"notes"`
	OwnerID         string     `json:"ownerId" binding:"omitempty,uuid"` // Admin may register for another owner
}

// CreatePet handles registering a new pet. Pet owners register pets for
// themselves; admins may set any owner.
func (h *PetHandler) CreatePet(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req CreatePetRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	ownerID := actor.ID
	if req.OwnerID != "" && req.OwnerID != actor.ID {
		if !actor.Role.Elevated() {
			utils.Forbidden(c, "You can only register pets for yourself.")
			return
		}
		ownerID = req.OwnerID
	}

	var owner models.User
	if err := h.DB.First(&owner, "id = ?", ownerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Owner not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	pet := models.Pet{
		Name:            req.Name,
		Species:         req.Species,
		Breed:           req.Breed,
		DateOfBirth:     req.DateOfBirth,
		LastVaccination: req.LastVaccination,
		Notes:           req.Notes,
		OwnerID:         ownerID,
	}
	if err := h.DB.Create(&pet).Error; err != nil {
		utils.InternalServerError(c, "Failed to register pet: "+err.Error())
		return
	}

	utils.Created(c, "Pet registered successfully", toPetResponse(pet))
}

// GetPets handles listing pets: all of them for admins, otherwise the
// caller's own.
func (h *PetHandler) GetPets(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	q := h.DB.Order("name asc")
	if !actor.Role.Elevated() {
		q = q.Where("owner_id = ?", actor.ID)
	}

	var pets []models.Pet
	if err := q.Find(&pets).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch pets: "+err.Error())
		return
	}

	out := make([]PetResponse, len(pets))
	for i, p := range pets {
		out[i] = toPetResponse(p)
	}
	utils.Success(c, "Pets fetched successfully", out)
}

// GetPetByID handles fetching a single pet.
func (h *PetHandler) GetPetByID(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	pet, ok := h.loadOwnedPet(c, actor.ID, actor.Role.Elevated())
	if !ok {
		return
	}
	utils.Success(c, "Pet fetched successfully", toPetResponse(*pet))
}

// UpdatePetRequest represents the request body for updating a pet. Ownership
// is immutable after creation.
type UpdatePetRequest struct {
	Name            string     `json:"name" binding:"max=100"`
	Species         string     `json:"species" binding:"max=50"`
	Breed           string     `json:"breed" binding:"max=100"`
	DateOfBirth     *time.Time `json:"dateOfBirth"`
	LastVaccination *time.Time `json:"lastVaccination"`
	Notes           *string    `json:"notes"`
}

// UpdatePet handles updating a pet's details.
func (h *PetHandler) UpdatePet(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req UpdatePetRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	pet, ok := h.loadOwnedPet(c, actor.ID, actor.Role.Elevated())
	if !ok {
		return
	}

	if req.Name != "" {
		pet.Name = req.Name
	}
	if req.Species != "" {
		pet.Species = req.Species
	}
	if req.Breed != "" {
		pet.Breed = req.Breed
	}
	if req.DateOfBirth != nil {
		pet.DateOfBirth = req.DateOfBirth
	}
	if req.LastVaccination != nil {
		pet.LastVaccination = req.LastVaccination
	}
	if req.Notes != nil {
		pet.Notes = *req.Notes
	}

	if err := h.DB.Save(pet).Error; err != nil {
		utils.InternalServerError(c, "Failed to update pet: "+err.Error())
		return
	}

	utils.Success(c, "Pet updated successfully", toPetResponse(*pet))
}

// DeletePet handles removing a pet and, through the schema's cascade, its
// appointments.
func (h *PetHandler) DeletePet(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	pet, ok := h.loadOwnedPet(c, actor.ID, actor.Role.Elevated())
	if !ok {
		return
	}

	if err := h.DB.Delete(pet).Error; err != nil {
		utils.InternalServerError(c, "Failed to delete pet: "+err.Error())
		return
	}

	utils.Success(c, "Pet deleted successfully", nil)
}

// loadOwnedPet fetches the pet from the URL and enforces the ownership rule.
// It writes the error response itself when returning ok=false.
func (h *PetHandler) loadOwnedPet(c *gin.Context, actorID string, elevated bool) (*models.Pet, bool) {
	var pet models.Pet
	if err := h.DB.First(&pet, "id = ?", c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Pet not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return nil, false
	}
	if !elevated && pet.OwnerID != actorID {
		utils.Forbidden(c, "You can only manage your own pets.")
		return nil, false
	}
	return &pet, true
}
