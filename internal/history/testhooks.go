package history

import "fmt"

// SetSchemaVersionForTests stamps an arbitrary schema version on the file.
func (s *Store) SetSchemaVersionForTests(version int) error {
	_, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", version))
	return err
}
