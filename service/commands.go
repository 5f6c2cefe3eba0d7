package service

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Tests set these; nil means the process's stdin and stdout.
var (
	stdin  io.Reader
	stdout io.Writer
)

func in() io.Reader {
	if stdin != nil {
		return stdin
	}
	return os.Stdin
}

func out() io.Writer {
	if stdout != nil {
		return stdout
	}
	return os.Stdout
}

// HandleDBCommand runs a Badger maintenance subcommand against dbPath and
// returns an exit code.
func HandleDBCommand(dbPath string, args []string) int {
	if len(args) < 1 {
		printDBHelp()
		return 1
	}

	switch args[0] {
	case "clean":
		return clean(dbPath)
	case "init":
		return initDB(dbPath)
	case "backup":
		return backup(dbPath)
	case "restore":
		if len(args) < 2 {
			fmt.Fprintln(out(), "Error: backup file path required for restore")
			return 1
		}
		return restore(dbPath, args[1])
	case "help":
		printDBHelp()
		return 0
	default:
		fmt.Fprintf(out(), "Unknown db command: %s\n\n", args[0])
		printDBHelp()
		return 1
	}
}

func printDBHelp() {
	fmt.Fprint(out(), `Usage: postwall db <command>

Commands:
  init                            Initialize a new empty database
  clean                           Delete the database
  backup                          Create a backup of the database
  restore <file>                  Restore database from backup
  help                            Display this help message
`)
}

func confirm(prompt string) bool {
	fmt.Fprint(out(), prompt+" [y/N] ")
	line, _ := bufio.NewReader(in()).ReadString('\n')
	answer := strings.TrimSpace(line)
	return answer == "y" || answer == "Y"
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func clean(dbPath string) int {
	if !exists(dbPath) {
		fmt.Fprintln(out(), "Database is already clean (does not exist)")
		return 0
	}
	if !confirm("Are you sure you want to clean the database? This cannot be undone.") {
		fmt.Fprintln(out(), "Operation cancelled")
		return 1
	}
	if err := os.RemoveAll(dbPath); err != nil {
		fmt.Fprintf(out(), "Failed to clean database: %v\n", err)
		return 1
	}
	fmt.Fprintln(out(), "Database cleaned successfully")
	return 0
}

func initDB(dbPath string) int {
	if exists(dbPath) {
		fmt.Fprintln(out(), "Database already exists. Use 'clean' first if you want to reinitialize.")
		return 1
	}
	if err := os.MkdirAll(dbPath, 0o755); err != nil {
		fmt.Fprintf(out(), "Failed to create database directory: %v\n", err)
		return 1
	}
	db, err := badger.Open(badger.DefaultOptions(dbPath).WithLogger(nil))
	if err != nil {
		fmt.Fprintf(out(), "Failed to initialize database: %v\n", err)
		return 1
	}
	defer db.Close()

	fmt.Fprintln(out(), "Database initialized successfully")
	return 0
}

// backup writes a full Badger backup next to the database, under backups/.
func backup(dbPath string) int {
	if !exists(dbPath) {
		fmt.Fprintln(out(), "No database exists to backup")
		return 1
	}

	backupDir := filepath.Join(filepath.Dir(dbPath), "backups")
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		fmt.Fprintf(out(), "Failed to create backup directory: %v\n", err)
		return 1
	}

	db, err := badger.Open(badger.DefaultOptions(dbPath).WithLogger(nil))
	if err != nil {
		fmt.Fprintf(out(), "Failed to open database: %v\n", err)
		return 1
	}
	defer db.Close()

	backupFile := filepath.Join(backupDir, fmt.Sprintf("backup_%d.db", time.Now().UnixNano()))
	f, err := os.Create(backupFile)
	if err != nil {
		fmt.Fprintf(out(), "Failed to create backup file: %v\n", err)
		return 1
	}
	defer f.Close()

	if _, err := db.Backup(f, 0); err != nil {
		fmt.Fprintf(out(), "Failed to backup database: %v\n", err)
		return 1
	}

	fmt.Fprintf(out(), "Database backed up successfully to %s\n", backupFile)
	return 0
}

// restore replaces the database with the contents of backupFile.
func restore(dbPath, backupFile string) int {
	fi, err := os.Stat(backupFile)
	if err != nil {
		fmt.Fprintf(out(), "Backup file does not exist: %s\n", backupFile)
		return 1
	}
	if fi.Size() == 0 {
		fmt.Fprintf(out(), "Backup file is empty: %s\n", backupFile)
		return 1
	}

	if exists(dbPath) {
		if !confirm("Existing database found. Do you want to replace it?") {
			fmt.Fprintln(out(), "Operation cancelled")
			return 1
		}
		if err := os.RemoveAll(dbPath); err != nil {
			fmt.Fprintf(out(), "Failed to remove existing database: %v\n", err)
			return 1
		}
	}
	if err := os.MkdirAll(dbPath, 0o755); err != nil {
		fmt.Fprintf(out(), "Failed to create database directory: %v\n", err)
		return 1
	}

	db, err := badger.Open(badger.DefaultOptions(dbPath).WithLogger(nil))
	if err != nil {
		fmt.Fprintf(out(), "Failed to open database: %v\n", err)
		return 1
	}
	defer db.Close()

	f, err := os.Open(backupFile)
	if err != nil {
		fmt.Fprintf(out(), "Failed to open backup file: %v\n", err)
		return 1
	}
	defer f.Close()

	if err := loadBackup(db, f); err != nil {
		fmt.Fprintf(out(), "Failed to restore database: %v\n", err)
		return 1
	}

	fmt.Fprintln(out(), "Database restored successfully")
	return 0
}

// loadBackup turns a panic from a corrupt backup stream into an error.
func loadBackup(db *badger.DB, r io.Reader) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic during restore: %v", p)
		}
	}()
	return db.Load(r, 16)
}
