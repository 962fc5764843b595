package api

import "github.com/taskward/taskward/pkg/schema"

// Body schemas for the mutating endpoints. Limits match the column
// widths of the corresponding tables.
var (
	CreateUserSchema = schema.NewObject(
		schema.String("first_name").Required("First name is required").Max(50, "First name should not be longer than 50 characters"),
		schema.String("last_name").Required("Last name is required").Max(50, "Last name should not be longer than 50 characters"),
		schema.String("email").Required("Email is required").Max(100, "Email should not be longer than 100 characters").Email(),
		schema.String("password").Required("Password is required"),
	)

	LoginSchema = schema.NewObject(
		schema.String("email").Required("Email is required").Max(100, "Email should not be longer than 100 characters").Email(),
		schema.String("password").Required("Password is required"),
	)

	CreateTaskSchema = schema.NewObject(
		schema.String("title").Required("Title is required").Max(50, "Title should not be longer than 50 characters"),
		schema.String("description").Required("Description is required"),
		schema.Enum("priority", string(PriorityLow), string(PriorityMedium), string(PriorityHigh)).Default(string(PriorityLow)),
	)

	UpdateTaskSchema = CreateTaskSchema.Partial()
)
