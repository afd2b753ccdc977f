package recordrepo_test

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/proveedores-api/internal/domain"
	"github.com/jhoicas/proveedores-api/internal/domain/entity"
	"github.com/jhoicas/proveedores-api/internal/domain/repository"
	"github.com/jhoicas/proveedores-api/internal/infrastructure/filestore"
	"github.com/jhoicas/proveedores-api/internal/infrastructure/recordrepo"
	"github.com/jhoicas/proveedores-api/internal/infrastructure/sqlite"
	"github.com/jhoicas/proveedores-api/internal/infrastructure/store"
	"github.com/jhoicas/proveedores-api/pkg/logger"
	"github.com/jhoicas/proveedores-api/pkg/password"
)

var fastHasher = password.Hasher{Cost: bcrypt.MinCost}

type opener func(t *testing.T, schema store.Schema) store.Store

func backends() map[string]opener {
	return map[string]opener{
		"file": func(t *testing.T, schema store.Schema) store.Store {
			s, _, err := filestore.Open(filepath.Join(t.TempDir(), schema.Collection+".json"), schema, logger.Nop())
			require.NoError(t, err)
			return s
		},
		"sqlite": func(t *testing.T, schema store.Schema) store.Store {
			db, err := sqlite.OpenSQLite(filepath.Join(t.TempDir(), "app.db"))
			require.NoError(t, err)
			t.Cleanup(func() { _ = sqlite.CloseDB(db) })
			s, err := sqlite.Open(context.Background(), db, schema, logger.Nop())
			require.NoError(t, err)
			return s
		},
	}
}

func ptr[T any](v T) *T { return &v }

func abc() *entity.Supplier {
	return &entity.Supplier{Name: "ABC", TaxID: "12.345.678/0001-90", Email: "a@b.com", Phone: "(11) 99999-0000"}
}

// ────────────────────────────────────────────────────────────────
// SupplierRepo
// ────────────────────────────────────────────────────────────────

func TestSupplierRepo(t *testing.T) {
	ctx := context.Background()
	for name, open := range backends() {
		open := open
		t.Run(name, func(t *testing.T) {
			newRepo := func(t *testing.T) *recordrepo.SupplierRepo {
				return recordrepo.NewSupplierRepo(open(t, recordrepo.SupplierSchema()), logger.Nop())
			}

			t.Run("Create_NormalizaYGet", func(t *testing.T) {
				repo := newRepo(t)
				created, err := repo.Create(ctx, abc())
				require.NoError(t, err)
				assert.True(t, strings.HasPrefix(created.ID, "sup_"))
				assert.Equal(t, "12345678000190", created.TaxID)
				assert.Equal(t, "11999990000", created.Phone)
				assert.False(t, created.CreatedAt.IsZero())
				assert.Equal(t, created.CreatedAt, created.UpdatedAt)

				got, err := repo.Get(ctx, created.ID)
				require.NoError(t, err)
				require.NotNil(t, got)
				assert.Equal(t, *created, *got)
			})

			t.Run("Create_CNPJDuplicado", func(t *testing.T) {
				repo := newRepo(t)
				_, err := repo.Create(ctx, abc())
				require.NoError(t, err)

				dup := abc()
				dup.TaxID = "12345678000190"
				_, err = repo.Create(ctx, dup)
				assert.ErrorIs(t, err, domain.ErrDuplicateTaxID)
				assert.ErrorIs(t, err, domain.ErrDuplicate)

				all, err := repo.List(ctx)
				require.NoError(t, err)
				assert.Len(t, all, 1)
			})

			t.Run("Update_CNPJDeOtroEsDuplicado_PropioNo", func(t *testing.T) {
				repo := newRepo(t)
				first, err := repo.Create(ctx, abc())
				require.NoError(t, err)
				other := abc()
				other.TaxID = "98765432000121"
				second, err := repo.Create(ctx, other)
				require.NoError(t, err)

				_, err = repo.Update(ctx, second.ID, repository.SupplierPatch{TaxID: ptr("12345678000190")})
				assert.ErrorIs(t, err, domain.ErrDuplicateTaxID)

				updated, err := repo.Update(ctx, first.ID, repository.SupplierPatch{TaxID: ptr("12345678000190"), Name: ptr("ABC Nueva")})
				require.NoError(t, err)
				require.NotNil(t, updated)
				assert.Equal(t, first.ID, updated.ID)
				assert.Equal(t, "ABC Nueva", updated.Name)
				assert.Equal(t, first.Email, updated.Email, "los campos ausentes se conservan")
				assert.Equal(t, first.CreatedAt, updated.CreatedAt)
			})

			t.Run("Update_ActualizaUpdatedAt", func(t *testing.T) {
				repo := newRepo(t)
				created, err := repo.Create(ctx, abc())
				require.NoError(t, err)
				time.Sleep(5 * time.Millisecond)

				updated, err := repo.Update(ctx, created.ID, repository.SupplierPatch{Phone: ptr("1")})
				require.NoError(t, err)
				assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))
			})

			t.Run("Update_InexistenteNoCrea", func(t *testing.T) {
				repo := newRepo(t)
				for _, id := range []string{"sup_no-existe", "usr_123", "garbage"} {
					got, err := repo.Update(ctx, id, repository.SupplierPatch{Name: ptr("X")})
					require.NoError(t, err)
					assert.Nil(t, got)
				}
				all, err := repo.List(ctx)
				require.NoError(t, err)
				assert.Empty(t, all)
			})

			t.Run("Delete_LuegoGetEsInexistente", func(t *testing.T) {
				repo := newRepo(t)
				created, err := repo.Create(ctx, abc())
				require.NoError(t, err)

				ok, err := repo.Delete(ctx, created.ID)
				require.NoError(t, err)
				assert.True(t, ok)

				got, err := repo.Get(ctx, created.ID)
				require.NoError(t, err)
				assert.Nil(t, got)

				ok, err = repo.Delete(ctx, created.ID)
				require.NoError(t, err)
				assert.False(t, ok)

				ok, err = repo.Delete(ctx, "desconocido")
				require.NoError(t, err)
				assert.False(t, ok)
			})

			t.Run("Seed_SoloConColeccionVacia", func(t *testing.T) {
				repo := newRepo(t)
				n, err := repo.Seed(ctx, recordrepo.DemoSuppliers())
				require.NoError(t, err)
				assert.Equal(t, 3, n)

				n, err = repo.Seed(ctx, recordrepo.DemoSuppliers())
				require.NoError(t, err)
				assert.Zero(t, n)

				all, err := repo.List(ctx)
				require.NoError(t, err)
				assert.Len(t, all, 3)
			})
		})
	}
}

func TestSupplierRepo_AltasConcurrentesMismoCNPJ(t *testing.T) {
	ctx := context.Background()
	open := backends()["file"]
	repo := recordrepo.NewSupplierRepo(open(t, recordrepo.SupplierSchema()), logger.Nop())

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.Create(ctx, abc()); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, domain.ErrDuplicateTaxID)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, ok, "el índice único del store impide más de un alta")
}

func TestSupplierRepo_RoundTripEntreAperturas(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "suppliers.json")

	st, _, err := filestore.Open(path, recordrepo.SupplierSchema(), logger.Nop())
	require.NoError(t, err)
	created, err := recordrepo.NewSupplierRepo(st, logger.Nop()).Create(ctx, abc())
	require.NoError(t, err)

	st, _, err = filestore.Open(path, recordrepo.SupplierSchema(), logger.Nop())
	require.NoError(t, err)
	got, err := recordrepo.NewSupplierRepo(st, logger.Nop()).Get(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, *created, *got)
}

// ────────────────────────────────────────────────────────────────
// UserRepo
// ────────────────────────────────────────────────────────────────

func alice() repository.NewUser {
	return repository.NewUser{Username: "alice", Email: "alice@x.com", Password: "secret", Role: entity.RoleUser, Active: true}
}

func TestUserRepo(t *testing.T) {
	ctx := context.Background()
	for name, open := range backends() {
		open := open
		t.Run(name, func(t *testing.T) {
			newRepo := func(t *testing.T) (*recordrepo.UserRepo, store.Store) {
				st := open(t, recordrepo.UserSchema())
				return recordrepo.NewUserRepo(st, fastHasher, logger.Nop()), st
			}

			t.Run("Create_HasheaContraseña", func(t *testing.T) {
				repo, st := newRepo(t)
				u, err := repo.Create(ctx, alice())
				require.NoError(t, err)
				assert.True(t, strings.HasPrefix(u.ID, "usr_"))
				assert.NotEqual(t, "secret", u.PasswordHash)
				assert.True(t, fastHasher.Verify("secret", u.PasswordHash))

				raw := st.Get(ctx, u.ID)
				require.NotNil(t, raw)
				assert.NotContains(t, raw, "password")
				assert.NotEqual(t, "secret", raw["password_hash"])
			})

			t.Run("Create_Duplicados", func(t *testing.T) {
				repo, _ := newRepo(t)
				_, err := repo.Create(ctx, alice())
				require.NoError(t, err)

				sameUser := alice()
				sameUser.Email = "otra@x.com"
				_, err = repo.Create(ctx, sameUser)
				assert.ErrorIs(t, err, domain.ErrDuplicateUsername)

				sameEmail := alice()
				sameEmail.Username = "alice2"
				_, err = repo.Create(ctx, sameEmail)
				assert.ErrorIs(t, err, domain.ErrDuplicateEmail)
			})

			t.Run("Create_RolInvalido", func(t *testing.T) {
				repo, _ := newRepo(t)
				in := alice()
				in.Role = "root"
				_, err := repo.Create(ctx, in)
				assert.ErrorIs(t, err, domain.ErrInvalidInput)
			})

			t.Run("Authenticate_FallosIndistinguibles", func(t *testing.T) {
				repo, _ := newRepo(t)
				created, err := repo.Create(ctx, alice())
				require.NoError(t, err)

				u, err := repo.Authenticate(ctx, "alice", "secret")
				require.NoError(t, err)
				assert.Equal(t, created.ID, u.ID)

				_, errWrong := repo.Authenticate(ctx, "alice", "wrong")
				_, errUnknown := repo.Authenticate(ctx, "bob", "secret")
				assert.ErrorIs(t, errWrong, domain.ErrInvalidCredentials)
				assert.Equal(t, errWrong, errUnknown)
			})

			t.Run("Update_RehasheaYValidaUnicidad", func(t *testing.T) {
				repo, _ := newRepo(t)
				a, err := repo.Create(ctx, alice())
				require.NoError(t, err)
				bob := alice()
				bob.Username, bob.Email = "bob", "bob@x.com"
				b, err := repo.Create(ctx, bob)
				require.NoError(t, err)

				_, err = repo.Update(ctx, b.ID, repository.UserPatch{Email: ptr("alice@x.com")})
				assert.ErrorIs(t, err, domain.ErrDuplicateEmail)
				_, err = repo.Update(ctx, b.ID, repository.UserPatch{Username: ptr("alice")})
				assert.ErrorIs(t, err, domain.ErrDuplicateUsername)

				updated, err := repo.Update(ctx, a.ID, repository.UserPatch{
					Username: ptr("alice"), Password: ptr("nueva123"), Role: ptr(entity.RoleAdmin), Active: ptr(false),
				})
				require.NoError(t, err)
				assert.Equal(t, a.ID, updated.ID)
				assert.Equal(t, entity.RoleAdmin, updated.Role)
				assert.False(t, updated.Active)
				assert.NotEqual(t, a.PasswordHash, updated.PasswordHash)

				_, err = repo.Authenticate(ctx, "alice", "secret")
				assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
				_, err = repo.Authenticate(ctx, "alice", "nueva123")
				assert.NoError(t, err)
			})

			t.Run("PasswordSobreLimiteBcrypt_EsValidacion", func(t *testing.T) {
				repo, _ := newRepo(t)
				u := alice()
				u.Password = strings.Repeat("ñ", 40)
				_, err := repo.Create(ctx, u)
				var verr *domain.ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, "password", verr.Errors[0].Field)

				a, err := repo.Create(ctx, alice())
				require.NoError(t, err)
				_, err = repo.Update(ctx, a.ID, repository.UserPatch{Password: ptr(strings.Repeat("ñ", 40))})
				assert.ErrorIs(t, err, domain.ErrInvalidInput)
			})

			t.Run("Update_Inexistente", func(t *testing.T) {
				repo, _ := newRepo(t)
				got, err := repo.Update(ctx, "usr_no-existe", repository.UserPatch{Role: ptr(entity.RoleAdmin)})
				require.NoError(t, err)
				assert.Nil(t, got)
			})

			t.Run("GetByUsernameYEmail", func(t *testing.T) {
				repo, _ := newRepo(t)
				created, err := repo.Create(ctx, alice())
				require.NoError(t, err)

				u, err := repo.GetByUsername(ctx, "alice")
				require.NoError(t, err)
				require.NotNil(t, u)
				assert.Equal(t, created.ID, u.ID)

				u, err = repo.GetByEmail(ctx, "alice@x.com")
				require.NoError(t, err)
				require.NotNil(t, u)
				assert.Equal(t, created.ID, u.ID)

				u, err = repo.GetByUsername(ctx, "nadie")
				require.NoError(t, err)
				assert.Nil(t, u)
			})

			t.Run("EnsureAdmin_SoloConColeccionVacia", func(t *testing.T) {
				repo, _ := newRepo(t)
				seed := recordrepo.AdminSeed{Username: "admin", Email: "admin@example.com", Password: "admin123"}

				created, err := repo.EnsureAdmin(ctx, seed)
				require.NoError(t, err)
				assert.True(t, created)

				created, err = repo.EnsureAdmin(ctx, seed)
				require.NoError(t, err)
				assert.False(t, created)

				u, err := repo.Authenticate(ctx, "admin", "admin123")
				require.NoError(t, err)
				assert.True(t, u.IsAdmin())
				assert.True(t, u.Active)
			})

			t.Run("Delete", func(t *testing.T) {
				repo, _ := newRepo(t)
				created, err := repo.Create(ctx, alice())
				require.NoError(t, err)

				ok, err := repo.Delete(ctx, created.ID)
				require.NoError(t, err)
				assert.True(t, ok)
				ok, err = repo.Delete(ctx, created.ID)
				require.NoError(t, err)
				assert.False(t, ok)
			})
		})
	}
}

func TestUserRepo_RegistroSinActiveEsActivo(t *testing.T) {
	ctx := context.Background()
	st := backends()["file"](t, recordrepo.UserSchema())
	digest, err := fastHasher.Hash("secret")
	require.NoError(t, err)
	rec, err := st.Create(ctx, store.Record{"username": "legacy", "email": "l@x.com", "password_hash": digest})
	require.NoError(t, err)

	u, err := recordrepo.NewUserRepo(st, fastHasher, logger.Nop()).Get(ctx, rec.ID())
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.True(t, u.Active)
	assert.Equal(t, entity.RoleUser, u.Role)
	assert.True(t, u.CreatedAt.IsZero())
}
