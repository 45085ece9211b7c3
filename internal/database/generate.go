package database

// Schema and query code are generated from the migrations:
//
//	go generate ./internal/database
//
// schema.sql is rebuilt by applying every migration to an in-memory catalog,
// then sqlc regenerates the query layer from it.

//go:generate sh -c "cd ../.. && go run internal/database/tools/generate_schema.go"
//go:generate sh -c "cd ../.. && sqlc generate -f internal/database/sqlc/sqlc.yaml"
