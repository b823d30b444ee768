package sql

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log"
)

//go:embed init.sql
var initSQL string

//go:embed indexes.sql
var indexesSQL string

//go:embed chunks.sql
var chunksSQL string

// Function lists for verification
var IndexesFunctions = []string{
	"init_indexes",
	"insert_index",
	"select_index",
	"select_all_indexes",
	"delete_index",
}

var ChunksFunctions = []string{
	"init_chunks",
	"insert_chunk",
	"count_chunks",
	"select_chunks_by_similarity",
}

// Init intializes db extensions
func Init(db *sql.DB) error {
	_, err := db.Exec(initSQL)
	if err != nil {
		return fmt.Errorf("error executing schema SQL: %w", err)
	}

	log.Println("Database extensions initialized successfully")
	return nil
}

// LoadIndexesSql loads index-registry SQL functions
func LoadIndexesSql(db *sql.DB, force bool) error {
	if !force {
		exist, err := checkFunctions(db, IndexesFunctions)
		if err != nil {
			return fmt.Errorf("error checking existing indexes functions: %w", err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(indexesSQL)
	if err != nil {
		return fmt.Errorf("error executing indexes SQL: %w", err)
	}

	exist, err := checkFunctions(db, IndexesFunctions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Println("SQL indexes functions loaded successfully")
	return nil
}

// LoadChunksSql loads chunk-related SQL functions
func LoadChunksSql(db *sql.DB, force bool) error {
	if !force {
		exist, err := checkFunctions(db, ChunksFunctions)
		if err != nil {
			return fmt.Errorf("error checking existing chunks functions: %w", err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(chunksSQL)
	if err != nil {
		return fmt.Errorf("error executing chunks SQL: %w", err)
	}

	exist, err := checkFunctions(db, ChunksFunctions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Println("SQL chunks functions loaded successfully")
	return nil
}

func checkFunctions(db *sql.DB, functions []string) (bool, error) {
	for _, function := range functions {
		var exists bool
		err := db.QueryRow(
			`SELECT EXISTS (SELECT 1 FROM pg_proc WHERE proname = $1)`,
			function,
		).Scan(&exists)
		if err != nil {
			return false, err
		}
		if !exists {
			return false, nil
		}
	}
	return true, nil
}
