package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"market-insights/pkg/models"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

var tableNameRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Open DSN mariadb:// ou mysql:// → driver MySQL ; sqlite://chemin ou fichier .db/.sqlite → driver SQLite.
// Renvoie aussi le nom du driver et le DSN effectivement utilisé.
func Open(dsn string) (*sql.DB, string, string, error) {
	driver, native, err := resolveDSN(dsn)
	if err != nil {
		return nil, "", "", err
	}
	db, err := sql.Open(driver, native)
	if err != nil {
		return nil, "", "", err
	}
	if driver == "mysql" {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
	} else {
		db.SetMaxOpenConns(1)
	}
	return db, driver, native, nil
}

func resolveDSN(dsn string) (string, string, error) {
	switch {
	case dsn == "":
		return "", "", fmt.Errorf("dsn vide")
	case strings.HasPrefix(dsn, "sqlite://"):
		path := strings.TrimPrefix(dsn, "sqlite://")
		if path == "" {
			return "", "", fmt.Errorf("dsn incomplet (chemin sqlite)")
		}
		return "sqlite", path, nil
	case strings.HasPrefix(dsn, "file:"):
		return "sqlite", dsn, nil
	case isSQLiteFile(dsn):
		return "sqlite", dsn, nil
	default:
		mysqlDSN, err := toMySQLDSN(dsn)
		if err != nil {
			return "", "", err
		}
		return "mysql", mysqlDSN, nil
	}
}

func isSQLiteFile(dsn string) bool {
	switch strings.ToLower(filepath.Ext(dsn)) {
	case ".db", ".sqlite", ".sqlite3":
		return !strings.Contains(dsn, "@tcp(")
	}
	return false
}

func toMySQLDSN(dsn string) (string, error) {
	if strings.HasPrefix(dsn, "mariadb://") || strings.HasPrefix(dsn, "mysql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", fmt.Errorf("parse dsn: %w", err)
		}
		user := ""
		pass := ""
		if u.User != nil {
			user = u.User.Username()
			pw, _ := u.User.Password()
			pass = pw
		}
		host := u.Host
		db := strings.TrimPrefix(u.Path, "/")
		if user == "" || host == "" || db == "" {
			return "", fmt.Errorf("dsn incomplet (user/host/db)")
		}
		return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&loc=UTC&interpolateParams=true",
			user, pass, host, db), nil
	}
	return dsn, nil
}

// TableQuery construit un SELECT * sur une table dont le nom est validé.
func TableQuery(tableName string) (string, error) {
	if !tableNameRe.MatchString(tableName) {
		return "", fmt.Errorf("table invalide")
	}
	return fmt.Sprintf("SELECT * FROM %s", tableName), nil
}

// LoadTable exécute la requête et renvoie le résultat comme table brute : noms de colonnes du résultat,
// cellules converties en texte (NULL → "", dates → "2006-01-02 15:04:05" UTC).
func LoadTable(ctx context.Context, db *sql.DB, query string, args ...any) (models.RawTable, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return models.RawTable{}, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return models.RawTable{}, err
	}
	table := models.RawTable{Columns: cols}

	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return models.RawTable{}, err
		}
		row := make([]string, len(cols))
		for i, v := range values {
			row[i] = cellText(v)
		}
		table.Rows = append(table.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return models.RawTable{}, err
	}
	return table, nil
}

func cellText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(x)
	case string:
		return x
	case time.Time:
		return x.UTC().Format("2006-01-02 15:04:05")
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
