package data

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/kehindes/groupspace/internal/apperr"
)

// TaskUpdate carries the optional fields of a partial task update.
// Nil means "leave unchanged"; Assignee and DueDate can be set to their
// zero values to clear them.
type TaskUpdate struct {
	Title       *string
	Description *string
	Assignee    *UserRef
	ClearAssign bool
	DueDate     *string
}

// TasksStore provides task database operations.
type TasksStore struct {
	coll *mongo.Collection
}

// NewTasksStore returns a TasksStore using the given collection.
func NewTasksStore(coll *mongo.Collection) *TasksStore {
	return &TasksStore{coll: coll}
}

// List returns the group's tasks, newest first.
func (t *TasksStore) List(ctx context.Context, groupID bson.ObjectID) ([]*Task, error) {
	opts := options.Find().SetSort(bson.M{"created_at": -1})

	cursor, err := t.coll.Find(ctx, bson.M{"group_id": groupID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var tasks []*Task
	if err = cursor.All(ctx, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// Create inserts a task with the creator snapshot stamped at write time.
func (t *TasksStore) Create(ctx context.Context, task *Task) (*Task, error) {
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now
	task.Completed = false
	task.CompletedAt = nil
	task.CompletedBy = nil

	result, err := t.coll.InsertOne(ctx, task)
	if err != nil {
		return nil, err
	}
	task.ID = result.InsertedID.(bson.ObjectID)
	return task, nil
}

// getInGroup loads a task and enforces the cross-group guard: a task id
// that resolves but belongs to a different group is treated as absent.
func (t *TasksStore) getInGroup(ctx context.Context, groupID, taskID bson.ObjectID) (*Task, error) {
	var task Task
	err := t.coll.FindOne(ctx, bson.M{"_id": taskID}).Decode(&task)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperr.NotFound("task not found")
		}
		return nil, err
	}
	if task.GroupID != groupID {
		return nil, apperr.NotFound("task not found")
	}
	return &task, nil
}

// Update applies a partial update. Any group member may update any task.
func (t *TasksStore) Update(ctx context.Context, groupID, taskID bson.ObjectID, upd TaskUpdate) (*Task, error) {
	task, err := t.getInGroup(ctx, groupID, taskID)
	if err != nil {
		return nil, err
	}

	set := bson.M{"updated_at": time.Now().UTC()}
	unset := bson.M{}

	if upd.Title != nil {
		set["title"] = *upd.Title
		task.Title = *upd.Title
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
		task.Description = *upd.Description
	}
	if upd.ClearAssign {
		unset["assignee"] = ""
		task.Assignee = nil
	} else if upd.Assignee != nil {
		set["assignee"] = *upd.Assignee
		task.Assignee = upd.Assignee
	}
	if upd.DueDate != nil {
		if *upd.DueDate == "" {
			unset["due_date"] = ""
			task.DueDate = ""
		} else {
			set["due_date"] = *upd.DueDate
			task.DueDate = *upd.DueDate
		}
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	if _, err := t.coll.UpdateByID(ctx, taskID, update); err != nil {
		return nil, err
	}
	return task, nil
}

// SetCompleted flips the completion flag. Completing stamps who and when;
// reopening clears both fields along with the flag, never just the bool.
func (t *TasksStore) SetCompleted(ctx context.Context, groupID, taskID bson.ObjectID, completed bool, actor UserRef) (*Task, error) {
	task, err := t.getInGroup(ctx, groupID, taskID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var update bson.M
	if completed {
		update = bson.M{"$set": bson.M{
			"completed":    true,
			"completed_at": now,
			"completed_by": actor,
			"updated_at":   now,
		}}
		task.Completed = true
		task.CompletedAt = &now
		task.CompletedBy = &actor
	} else {
		update = bson.M{
			"$set":   bson.M{"completed": false, "updated_at": now},
			"$unset": bson.M{"completed_at": "", "completed_by": ""},
		}
		task.Completed = false
		task.CompletedAt = nil
		task.CompletedBy = nil
	}
	task.UpdatedAt = now

	if _, err := t.coll.UpdateByID(ctx, taskID, update); err != nil {
		return nil, err
	}
	return task, nil
}

// Delete removes a task, honoring the cross-group guard.
func (t *TasksStore) Delete(ctx context.Context, groupID, taskID bson.ObjectID) error {
	if _, err := t.getInGroup(ctx, groupID, taskID); err != nil {
		return err
	}
	_, err := t.coll.DeleteOne(ctx, bson.M{"_id": taskID})
	return err
}
