package db

import "testing"

func TestTaskLifecycle(t *testing.T) {
	openTestDB(t)

	id, err := CreateTask("search-keyword-index", `{"documentIds":["d1"]}`)
	if err != nil {
		t.Fatal(err)
	}
	if id == "" {
		t.Fatal("expected non-empty task id")
	}

	tasks, err := ClaimPendingTasks(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 claimed task, got %d", len(tasks))
	}
	if tasks[0].Status != TaskStatusRunning {
		t.Errorf("expected running, got %s", tasks[0].Status)
	}
	if tasks[0].Attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", tasks[0].Attempts)
	}

	// Claimed tasks are not re-delivered
	tasks, err = ClaimPendingTasks(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 0 {
		t.Errorf("expected no pending tasks, got %d", len(tasks))
	}

	if err := FinishTask(id, TaskStatusDone, nil); err != nil {
		t.Fatal(err)
	}

	task, err := GetTaskByID(id)
	if err != nil {
		t.Fatal(err)
	}
	if task.Status != TaskStatusDone {
		t.Errorf("expected done, got %s", task.Status)
	}
}
