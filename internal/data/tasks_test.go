package data

import (
	"context"
	"testing"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/kehindes/groupspace/internal/apperr"
)

func TestTasksCreateAndList(t *testing.T) {
	c := setupDB(t)
	tasks := NewTasksStore(c.TasksCollection())
	ctx := context.Background()

	groupID := bson.NewObjectID()
	creator := UserRef{UserID: bson.NewObjectID(), DisplayName: "Creator"}

	created, err := tasks.Create(ctx, &Task{
		GroupID:     groupID,
		Title:       "Write outline",
		Description: "chapters 1-3",
		DueDate:     "2026-09-15",
		CreatedBy:   creator,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID.IsZero() {
		t.Fatal("expected assigned id")
	}
	if created.Completed {
		t.Fatal("new task must start incomplete")
	}

	list, err := tasks.List(ctx, groupID)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 1 || list[0].Title != "Write outline" {
		t.Fatalf("unexpected list: %+v", list)
	}

	// Other groups see nothing.
	other, err := tasks.List(ctx, bson.NewObjectID())
	if err != nil {
		t.Fatalf("List (other) failed: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("expected empty list for other group, got %d", len(other))
	}
}

func TestTasksPartialUpdate(t *testing.T) {
	c := setupDB(t)
	tasks := NewTasksStore(c.TasksCollection())
	ctx := context.Background()

	groupID := bson.NewObjectID()
	creator := UserRef{UserID: bson.NewObjectID(), DisplayName: "C"}

	task, err := tasks.Create(ctx, &Task{GroupID: groupID, Title: "t", Description: "d", CreatedBy: creator})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	title := "renamed"
	assignee := UserRef{UserID: bson.NewObjectID(), DisplayName: "Assignee"}
	updated, err := tasks.Update(ctx, groupID, task.ID, TaskUpdate{Title: &title, Assignee: &assignee})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Title != "renamed" || updated.Description != "d" {
		t.Fatalf("partial update wrong: %+v", updated)
	}
	if updated.Assignee == nil || updated.Assignee.DisplayName != "Assignee" {
		t.Fatalf("assignee not set: %+v", updated.Assignee)
	}

	// Clearing the assignee.
	cleared, err := tasks.Update(ctx, groupID, task.ID, TaskUpdate{ClearAssign: true})
	if err != nil {
		t.Fatalf("Update (clear) failed: %v", err)
	}
	if cleared.Assignee != nil {
		t.Fatalf("assignee not cleared: %+v", cleared.Assignee)
	}

	// Cross-group guard: valid id, wrong group.
	if _, err := tasks.Update(ctx, bson.NewObjectID(), task.ID, TaskUpdate{Title: &title}); err == nil {
		t.Fatal("expected rejection for cross-group update")
	} else if e, ok := apperr.From(err); !ok || e.Status != 404 {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestTasksCompletionToggle(t *testing.T) {
	c := setupDB(t)
	tasks := NewTasksStore(c.TasksCollection())
	ctx := context.Background()

	groupID := bson.NewObjectID()
	creator := UserRef{UserID: bson.NewObjectID(), DisplayName: "C"}
	actor := UserRef{UserID: bson.NewObjectID(), DisplayName: "Finisher"}

	task, err := tasks.Create(ctx, &Task{GroupID: groupID, Title: "t", CreatedBy: creator})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	done, err := tasks.SetCompleted(ctx, groupID, task.ID, true, actor)
	if err != nil {
		t.Fatalf("SetCompleted(true) failed: %v", err)
	}
	if !done.Completed || done.CompletedAt == nil || done.CompletedBy == nil {
		t.Fatalf("completion fields not stamped: %+v", done)
	}
	if done.CompletedBy.DisplayName != "Finisher" {
		t.Fatalf("wrong completer snapshot: %+v", done.CompletedBy)
	}

	// Toggling back clears both fields, not just the flag.
	reopened, err := tasks.SetCompleted(ctx, groupID, task.ID, false, actor)
	if err != nil {
		t.Fatalf("SetCompleted(false) failed: %v", err)
	}
	if reopened.Completed || reopened.CompletedAt != nil || reopened.CompletedBy != nil {
		t.Fatalf("reopen left completion fields: %+v", reopened)
	}

	// Verify persisted state, not just the returned struct.
	list, err := tasks.List(ctx, groupID)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if list[0].Completed || list[0].CompletedAt != nil || list[0].CompletedBy != nil {
		t.Fatalf("persisted completion fields wrong: %+v", list[0])
	}
}

func TestTasksDeleteGuard(t *testing.T) {
	c := setupDB(t)
	tasks := NewTasksStore(c.TasksCollection())
	ctx := context.Background()

	groupID := bson.NewObjectID()
	task, err := tasks.Create(ctx, &Task{GroupID: groupID, Title: "t", CreatedBy: UserRef{UserID: bson.NewObjectID()}})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := tasks.Delete(ctx, bson.NewObjectID(), task.ID); err == nil {
		t.Fatal("expected rejection for cross-group delete")
	}
	if err := tasks.Delete(ctx, groupID, task.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := tasks.Delete(ctx, groupID, task.ID); err == nil {
		t.Fatal("expected not-found after delete")
	}
}
