package migration

import (
	"errors"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"bugsentinel/internal/utils/logger"
)

type MockMigrator struct {
	mock.Mock
}

func (m *MockMigrator) Up() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockMigrator) Version() (uint, bool, error) {
	args := m.Called()
	return args.Get(0).(uint), args.Bool(1), args.Error(2)
}

func (m *MockMigrator) Close() (error, error) {
	args := m.Called()
	return args.Error(0), args.Error(1)
}

func engineFor(m Migrator, gotSource, gotDB *string) Engine {
	return func(source, db string) (Migrator, error) {
		*gotSource, *gotDB = source, db
		return m, nil
	}
}

func TestMigration_Up(t *testing.T) {
	tests := []struct {
		name    string
		upErr   error
		wantErr bool
	}{
		{name: "applied", upErr: nil},
		{name: "no change", upErr: migrate.ErrNoChange},
		{name: "failure", upErr: errors.New("syntax error"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(MockMigrator)
			m.On("Up").Return(tt.upErr)
			m.On("Version").Return(uint(1), false, nil).Maybe()
			m.On("Close").Return(nil, nil)

			var source, db string
			mg := New("migrations", "postgres://u:p@localhost/bs", engineFor(m, &source, &db), logger.Discard())
			err := mg.Up()

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, "file://migrations", source)
			assert.Equal(t, "pgx5://u:p@localhost/bs", db)
			m.AssertExpectations(t)
		})
	}
}

func TestMigration_Up_EngineError(t *testing.T) {
	engine := func(string, string) (Migrator, error) {
		return nil, errors.New("engine crash")
	}

	err := New("migrations", "postgres://x", engine, logger.Discard()).Up()

	assert.ErrorContains(t, err, "engine crash")
}

func TestMigration_Up_CloseError(t *testing.T) {
	m := new(MockMigrator)
	m.On("Up").Return(nil)
	m.On("Version").Return(uint(1), false, nil)
	m.On("Close").Return(nil, errors.New("connection reset"))

	var source, db string
	err := New("migrations", "postgres://x", engineFor(m, &source, &db), logger.Discard()).Up()

	assert.ErrorContains(t, err, "connection reset")
}
