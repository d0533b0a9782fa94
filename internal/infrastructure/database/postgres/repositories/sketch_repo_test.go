package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/kFady/stereo-site-1/internal/infrastructure/monitoring/logging"
	"github.com/kFady/stereo-site-1/pkg/errors"
	"github.com/kFady/stereo-site-1/pkg/types/chem"
	"github.com/kFady/stereo-site-1/pkg/types/common"
)

var pgUniqueErr = pgconn.PgError{Code: pgUniqueViolation}

type SketchRepoTestSuite struct {
	suite.Suite
	db   *sql.DB
	mock sqlmock.Sqlmock
	repo *SketchRepository
}

func (s *SketchRepoTestSuite) SetupTest() {
	var err error
	s.db, s.mock, err = sqlmock.New()
	require.NoError(s.T(), err)
	s.repo = NewSketchRepository(s.db, logging.NewNopLogger())
}

func (s *SketchRepoTestSuite) TearDownTest() {
	s.db.Close()
}

func ethanolSketch() *Sketch {
	mol := chem.Molecule{
		Atoms: []chem.Atom{
			{ID: "a1", Element: chem.ElementC, X: 0, Y: 0},
			{ID: "a2", Element: chem.ElementC, X: 60, Y: 0},
			{ID: "a3", Element: chem.ElementO, X: 90, Y: 52},
		},
		Bonds: []chem.Bond{
			{ID: "b1", From: "a1", To: "a2", Order: chem.BondSingle},
			{ID: "b2", From: "a2", To: "a3", Order: chem.BondSingle},
		},
	}
	return &Sketch{
		ID:          common.NewID(),
		Name:        "ethanol",
		Molecule:    mol,
		ContentHash: mol.ContentHash(),
	}
}

func (s *SketchRepoTestSuite) TestSave_Success() {
	sk := ethanolSketch()

	s.mock.ExpectQuery("INSERT INTO sketches").
		WithArgs(sk.ID, sk.Name, sqlmock.AnyArg(), sk.ContentHash).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).
			AddRow(time.Now(), time.Now()))

	err := s.repo.Save(context.Background(), sk)
	assert.NoError(s.T(), err)
	assert.False(s.T(), sk.CreatedAt.IsZero())
}

func (s *SketchRepoTestSuite) TestSave_NameConflict() {
	sk := ethanolSketch()

	s.mock.ExpectQuery("INSERT INTO sketches").
		WithArgs(sk.ID, sk.Name, sqlmock.AnyArg(), sk.ContentHash).
		WillReturnError(&pgUniqueErr)

	err := s.repo.Save(context.Background(), sk)
	assert.True(s.T(), errors.IsCode(err, errors.ErrCodeSketchNameConflict))
}

func (s *SketchRepoTestSuite) TestFindByID_Found() {
	sk := ethanolSketch()
	molJSON, err := json.Marshal(sk.Molecule)
	require.NoError(s.T(), err)

	s.mock.ExpectQuery("SELECT .* FROM sketches WHERE id =").
		WithArgs(sk.ID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "molecule", "content_hash", "created_at", "updated_at",
		}).AddRow(sk.ID, sk.Name, molJSON, sk.ContentHash, time.Now(), time.Now()))

	got, err := s.repo.FindByID(context.Background(), sk.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "ethanol", got.Name)
	assert.Len(s.T(), got.Molecule.Atoms, 3)
	assert.Equal(s.T(), sk.ContentHash, got.Molecule.ContentHash())
}

func (s *SketchRepoTestSuite) TestFindByName_NotFound() {
	s.mock.ExpectQuery("SELECT .* FROM sketches WHERE name =").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := s.repo.FindByName(context.Background(), "missing")
	assert.True(s.T(), errors.IsNotFound(err))
}

func (s *SketchRepoTestSuite) TestList_ReturnsPageAndTotal() {
	sk := ethanolSketch()
	molJSON, err := json.Marshal(sk.Molecule)
	require.NoError(s.T(), err)

	s.mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(1)))
	s.mock.ExpectQuery("SELECT .* FROM sketches").
		WithArgs(20, 0).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "molecule", "content_hash", "created_at", "updated_at",
		}).AddRow(sk.ID, sk.Name, molJSON, sk.ContentHash, time.Now(), time.Now()))

	items, total, err := s.repo.List(context.Background(), common.Pagination{Page: 1, PageSize: 20})
	require.NoError(s.T(), err)
	assert.EqualValues(s.T(), 1, total)
	assert.Len(s.T(), items, 1)
}

func (s *SketchRepoTestSuite) TestDelete_Missing() {
	id := common.NewID()
	s.mock.ExpectExec("DELETE FROM sketches").
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.repo.Delete(context.Background(), id)
	assert.True(s.T(), errors.IsCode(err, errors.ErrCodeSketchNotFound))
}

func (s *SketchRepoTestSuite) TestUpdate_Missing() {
	sk := ethanolSketch()
	s.mock.ExpectExec("UPDATE sketches SET").
		WithArgs(sk.ID, sk.Name, sqlmock.AnyArg(), sk.ContentHash).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.repo.Update(context.Background(), sk)
	assert.True(s.T(), errors.IsCode(err, errors.ErrCodeSketchNotFound))
}

func TestSketchRepoTestSuite(t *testing.T) {
	suite.Run(t, new(SketchRepoTestSuite))
}
