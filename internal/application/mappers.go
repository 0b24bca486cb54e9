package application

import "github.com/beerhive/fulfillment/internal/domain"

// ToTaskDTO converts a domain PrepTask to TaskDTO
func ToTaskDTO(task *domain.PrepTask) *TaskDTO {
	if task == nil {
		return nil
	}

	return &TaskDTO{
		TaskID:          task.ID,
		OrderID:         task.OrderID,
		OrderLineID:     task.OrderLineID,
		BundleLineID:    task.BundleLineID,
		Station:         string(task.Station),
		ItemName:        task.ItemName,
		Quantity:        task.Quantity,
		Notes:           task.Notes,
		State:           string(task.State),
		Priority:        task.Priority,
		AssignedTo:      task.AssignedTo,
		InferredStation: task.InferredStation,
		CreatedAt:       task.CreatedAt,
		UpdatedAt:       task.UpdatedAt,
		StartedAt:       task.StartedAt,
		ReadyAt:         task.ReadyAt,
		ServedAt:        task.ServedAt,
		CancelledAt:     task.CancelledAt,
	}
}

// ToTaskDTOs converts a slice of domain PrepTasks to TaskDTOs
func ToTaskDTOs(tasks []*domain.PrepTask) []TaskDTO {
	dtos := make([]TaskDTO, 0, len(tasks))
	for _, task := range tasks {
		if dto := ToTaskDTO(task); dto != nil {
			dtos = append(dtos, *dto)
		}
	}
	return dtos
}
