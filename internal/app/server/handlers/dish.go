package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ZhanWeiKai/eatwhat/internal/core/domain"
	"github.com/ZhanWeiKai/eatwhat/internal/core/services"
	"github.com/ZhanWeiKai/eatwhat/internal/platform/logger"
)

type DishHandler struct {
	dishSvc *services.DishService
}

func NewDishHandler(d *services.DishService) *DishHandler {
	return &DishHandler{dishSvc: d}
}

func (h *DishHandler) ListDishes(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	dishes, err := h.dishSvc.ListDishes(r.Context(), r.URL.Query().Get("categoryId"))
	if err != nil {
		log.ErrorContext(r.Context(), "dish handler - list failed", "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(dishes)
}

func (h *DishHandler) CreateDish(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	var dish domain.Dish
	if err := json.NewDecoder(r.Body).Decode(&dish); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if err := h.dishSvc.CreateDish(r.Context(), &dish); err != nil {
		log.ErrorContext(r.Context(), "dish handler - create failed", "err", err)
		if errors.Is(err, domain.ErrCategoryNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(dish)
}

func (h *DishHandler) UpdateDish(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	var dish domain.Dish
	if err := json.NewDecoder(r.Body).Decode(&dish); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	dish.DishID = r.PathValue("id")
	if err := h.dishSvc.UpdateDish(r.Context(), &dish); err != nil {
		log.ErrorContext(r.Context(), "dish handler - update failed", "dish_id", dish.DishID, "err", err)
		if errors.Is(err, domain.ErrDishNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(dish)
}

func (h *DishHandler) DeleteDish(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	dishID := r.PathValue("id")
	if err := h.dishSvc.DeleteDish(r.Context(), dishID); err != nil {
		log.ErrorContext(r.Context(), "dish handler - delete failed", "dish_id", dishID, "err", err)
		if errors.Is(err, domain.ErrDishNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"message": "dish deleted"})
}

func (h *DishHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	categories, err := h.dishSvc.ListCategories(r.Context())
	if err != nil {
		log.ErrorContext(r.Context(), "dish handler - list categories failed", "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(categories)
}

func (h *DishHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	var cat domain.DishCategory
	if err := json.NewDecoder(r.Body).Decode(&cat); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if err := h.dishSvc.CreateCategory(r.Context(), &cat); err != nil {
		log.ErrorContext(r.Context(), "dish handler - create category failed", "err", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(cat)
}

func (h *DishHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	categoryID := r.PathValue("id")
	if err := h.dishSvc.DeleteCategory(r.Context(), categoryID); err != nil {
		log.ErrorContext(r.Context(), "dish handler - delete category failed", "category_id", categoryID, "err", err)
		if errors.Is(err, domain.ErrCategoryNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"message": "category deleted"})
}
