package db

import (
	"database/sql"

	"github.com/google/uuid"
)

const taskColumns = "id, task_type, payload, status, error, attempts, created_at, updated_at"

func scanTask(row interface{ Scan(...any) error }) (Task, error) {
	var t Task
	var taskError sql.NullString

	err := row.Scan(
		&t.ID, &t.TaskType, &t.Payload, &t.Status, &taskError,
		&t.Attempts, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return t, err
	}

	t.Error = StringPtr(taskError)
	return t, nil
}

// CreateTask inserts a new pending task and returns its id
func CreateTask(taskType, payload string) (string, error) {
	id := uuid.New().String()
	now := NowMs()

	_, err := GetDB().Exec(`
		INSERT INTO tasks (id, task_type, payload, status, attempts, created_at, updated_at)
		VALUES (?, ?, ?, 'pending', 0, ?, ?)
	`, id, taskType, payload, now, now)
	if err != nil {
		return "", err
	}
	return id, nil
}

// GetTaskByID retrieves a task by id
func GetTaskByID(id string) (*Task, error) {
	row := GetDB().QueryRow("SELECT "+taskColumns+" FROM tasks WHERE id = ?", id)

	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ClaimPendingTasks atomically marks up to limit pending tasks as running and
// returns them, oldest first. Single-writer SQLite makes the claim safe.
func ClaimPendingTasks(limit int) ([]Task, error) {
	rows, err := GetDB().Query(
		"SELECT "+taskColumns+" FROM tasks WHERE status = 'pending' ORDER BY created_at ASC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	now := NowMs()
	for i := range tasks {
		_, err := GetDB().Exec(
			"UPDATE tasks SET status = 'running', attempts = attempts + 1, updated_at = ? WHERE id = ?",
			now, tasks[i].ID,
		)
		if err != nil {
			return nil, err
		}
		tasks[i].Status = TaskStatusRunning
		tasks[i].Attempts++
	}

	return tasks, nil
}

// FinishTask marks a task done or error
func FinishTask(id, status string, errorMsg *string) error {
	_, err := GetDB().Exec(
		"UPDATE tasks SET status = ?, error = ?, updated_at = ? WHERE id = ?",
		status, errorMsg, NowMs(), id,
	)
	return err
}
