package recordrepo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jhoicas/proveedores-api/internal/domain"
	"github.com/jhoicas/proveedores-api/internal/domain/entity"
	"github.com/jhoicas/proveedores-api/internal/domain/repository"
	"github.com/jhoicas/proveedores-api/internal/infrastructure/store"
	"github.com/jhoicas/proveedores-api/pkg/logger"
	"github.com/jhoicas/proveedores-api/pkg/password"
)

var _ repository.UserRepository = (*UserRepo)(nil)

var userDup = map[string]error{
	fieldUsername: domain.ErrDuplicateUsername,
	fieldEmail:    domain.ErrDuplicateEmail,
}

// UserRepo aplica unicidad de username/email, hashing de contraseñas y autenticación.
type UserRepo struct {
	st     store.Store
	hasher password.Hasher
	log    *logger.Logger
	now    func() time.Time

	dummyOnce sync.Once
	dummy     string
}

// NewUserRepo construye el repositorio. st debe haberse abierto con UserSchema().
func NewUserRepo(st store.Store, hasher password.Hasher, log *logger.Logger) *UserRepo {
	if log == nil {
		log = logger.Nop()
	}
	return &UserRepo{st: st, hasher: hasher, log: log.Named("user_repo"), now: time.Now}
}

type userRecord struct {
	ID           string    `mapstructure:"id"`
	Username     string    `mapstructure:"username"`
	Email        string    `mapstructure:"email"`
	PasswordHash string    `mapstructure:"password_hash"`
	Role         string    `mapstructure:"role"`
	Active       bool      `mapstructure:"active"`
	CreatedAt    time.Time `mapstructure:"created_at"`
	UpdatedAt    time.Time `mapstructure:"updated_at"`
}

func (r *UserRepo) toEntity(rec store.Record) (*entity.User, error) {
	var ur userRecord
	if err := decode(rec, &ur); err != nil {
		return nil, err
	}
	// Registros antiguos sin "active" se consideran activos.
	if _, ok := rec[fieldActive]; !ok {
		ur.Active = true
	}
	if ur.Role == "" {
		ur.Role = entity.RoleUser
	}
	return &entity.User{
		ID:           ur.ID,
		Username:     ur.Username,
		Email:        ur.Email,
		PasswordHash: ur.PasswordHash,
		Role:         ur.Role,
		Active:       ur.Active,
		CreatedAt:    ur.CreatedAt,
		UpdatedAt:    ur.UpdatedAt,
	}, nil
}

// findOne devuelve el primer usuario con field == value.
func (r *UserRepo) findOne(ctx context.Context, field, value string) (*entity.User, error) {
	found := r.st.FindBy(ctx, field, value)
	if len(found) > 1 {
		r.log.Warn().Str("field", field).Int("matches", len(found)).Msg("valor único repetido en el almacenamiento")
	}
	for _, rec := range found {
		return r.toEntity(rec)
	}
	return nil, nil
}

// taken indica si otro usuario (distinto de exceptID) ya usa value en field.
func (r *UserRepo) taken(ctx context.Context, field, value, exceptID string) bool {
	for id := range r.st.FindBy(ctx, field, value) {
		if id != exceptID {
			return true
		}
	}
	return false
}

func (r *UserRepo) hash(plain string) (string, error) {
	h, err := r.hasher.Hash(plain)
	if errors.Is(err, password.ErrEmpty) {
		return "", domain.NewValidationError("password", "es obligatorio")
	}
	if errors.Is(err, password.ErrTooLong) {
		return "", domain.NewValidationError("password", fmt.Sprintf("debe ocupar como máximo %d bytes", password.MaxBytes))
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return h, nil
}

// List devuelve todos los usuarios indexados por id.
func (r *UserRepo) List(ctx context.Context) (map[string]*entity.User, error) {
	all := r.st.GetAll(ctx)
	out := make(map[string]*entity.User, len(all))
	for id, rec := range all {
		u, err := r.toEntity(rec)
		if err != nil {
			r.log.Warn().Err(err).Str("id", id).Msg("usuario indecodificable omitido")
			continue
		}
		out[id] = u
	}
	return out, nil
}

// Get obtiene un usuario por id; (nil, nil) si no existe.
func (r *UserRepo) Get(ctx context.Context, id string) (*entity.User, error) {
	if !UserIDs.Owns(id) {
		return nil, nil
	}
	rec := r.st.Get(ctx, id)
	if rec == nil {
		return nil, nil
	}
	return r.toEntity(rec)
}

// GetByUsername busca por nombre de usuario exacto.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	return r.findOne(ctx, fieldUsername, username)
}

// GetByEmail busca por email exacto.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.findOne(ctx, fieldEmail, email)
}

// Create hashea la contraseña y persiste el usuario.
func (r *UserRepo) Create(ctx context.Context, in repository.NewUser) (*entity.User, error) {
	role := in.Role
	if role == "" {
		role = entity.RoleUser
	}
	if !entity.ValidRole(role) {
		return nil, domain.NewValidationError("role", "debe ser admin o user")
	}
	if r.taken(ctx, fieldUsername, in.Username, "") {
		return nil, domain.ErrDuplicateUsername
	}
	if r.taken(ctx, fieldEmail, in.Email, "") {
		return nil, domain.ErrDuplicateEmail
	}
	digest, err := r.hash(in.Password)
	if err != nil {
		return nil, err
	}
	now := stamp(r.now())
	rec, err := r.st.Create(ctx, store.Record{
		fieldUsername:     in.Username,
		fieldEmail:        in.Email,
		fieldPasswordHash: digest,
		fieldRole:         role,
		fieldActive:       in.Active,
		fieldCreatedAt:    now,
		fieldUpdatedAt:    now,
	})
	if err != nil {
		return nil, translate(err, userDup)
	}
	r.log.Info().Str("id", rec.ID()).Str("username", in.Username).Msg("usuario creado")
	return r.toEntity(rec)
}

// Update aplica los campos presentes; si llega password se vuelve a hashear. (nil, nil) si no existe.
func (r *UserRepo) Update(ctx context.Context, id string, patch repository.UserPatch) (*entity.User, error) {
	if !UserIDs.Owns(id) || r.st.Get(ctx, id) == nil {
		return nil, nil
	}
	rec := store.Record{fieldUpdatedAt: stamp(r.now())}
	if patch.Username != nil {
		if r.taken(ctx, fieldUsername, *patch.Username, id) {
			return nil, domain.ErrDuplicateUsername
		}
		rec[fieldUsername] = *patch.Username
	}
	if patch.Email != nil {
		if r.taken(ctx, fieldEmail, *patch.Email, id) {
			return nil, domain.ErrDuplicateEmail
		}
		rec[fieldEmail] = *patch.Email
	}
	if patch.Password != nil {
		digest, err := r.hash(*patch.Password)
		if err != nil {
			return nil, err
		}
		rec[fieldPasswordHash] = digest
	}
	if patch.Role != nil {
		if !entity.ValidRole(*patch.Role) {
			return nil, domain.NewValidationError("role", "debe ser admin o user")
		}
		rec[fieldRole] = *patch.Role
	}
	if patch.Active != nil {
		rec[fieldActive] = *patch.Active
	}
	updated, err := r.st.Update(ctx, id, rec)
	if err != nil {
		return nil, translate(err, userDup)
	}
	if updated == nil {
		return nil, nil
	}
	return r.toEntity(updated)
}

// Delete elimina un usuario; false si no existía.
func (r *UserRepo) Delete(ctx context.Context, id string) (bool, error) {
	if !UserIDs.Owns(id) {
		return false, nil
	}
	ok, err := r.st.Delete(ctx, id)
	if err != nil {
		return false, translate(err, userDup)
	}
	return ok, nil
}

// dummyHash digest fijo contra el que se compara cuando el usuario no existe,
// de modo que ambos caminos de fallo cuestan un bcrypt.
func (r *UserRepo) dummyHash() string {
	r.dummyOnce.Do(func() {
		h, err := r.hasher.Hash("dummy-password-for-timing")
		if err != nil {
			r.log.Error().Err(err).Msg("no se pudo generar el hash de relleno")
		}
		r.dummy = h
	})
	return r.dummy
}

// Authenticate busca por username y verifica la contraseña. Usuario desconocido y contraseña
// incorrecta devuelven el mismo domain.ErrInvalidCredentials.
func (r *UserRepo) Authenticate(ctx context.Context, username, plain string) (*entity.User, error) {
	u, err := r.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if u == nil {
		r.hasher.Verify(plain, r.dummyHash())
		return nil, domain.ErrInvalidCredentials
	}
	if !r.hasher.Verify(plain, u.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}
	return u, nil
}

// AdminSeed credenciales del administrador inicial.
type AdminSeed struct {
	Username string
	Email    string
	Password string
}

// EnsureAdmin crea el administrador si la colección de usuarios está vacía. Devuelve si lo creó.
func (r *UserRepo) EnsureAdmin(ctx context.Context, seed AdminSeed) (bool, error) {
	if len(r.st.GetAll(ctx)) > 0 {
		return false, nil
	}
	u, err := r.Create(ctx, repository.NewUser{
		Username: seed.Username,
		Email:    seed.Email,
		Password: seed.Password,
		Role:     entity.RoleAdmin,
		Active:   true,
	})
	if err != nil {
		return false, fmt.Errorf("crear admin inicial: %w", err)
	}
	r.log.Info().Str("id", u.ID).Str("username", u.Username).Msg("administrador inicial creado")
	return true, nil
}
