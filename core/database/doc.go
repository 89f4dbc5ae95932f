// Package database opens the gorm connection backing adapter-tree persistence.
//
// MySQL is used for shared deployments, SQLite for a single client's local
// state file. Both go through Connect, selected by Config.Driver.
//
// # Schema Inspection
//
// GetTableColumns and MissingColumns read the live schema so the doctor
// command can report tables left behind by an older release.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    return err
//	}
//
//	missing, err := database.MissingColumns(db, "tree_nodes", []string{"scope", "id"})
package database
