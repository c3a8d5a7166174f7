// Package redis implementa el contador de numeración sobre Redis
// (NUMBERING_BACKEND=redis). Plantillas y documentos siguen en PostgreSQL.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/jhoicas/erp-tn-api/internal/domain/entity"
	"github.com/jhoicas/erp-tn-api/internal/domain/repository"
)

var _ repository.SequenceRepository = (*SequenceStore)(nil)

// nextScript incrementa el contador respetando la base fijada con SetBase.
// Se ejecuta atómicamente en el servidor: dos clientes nunca leen el mismo valor.
const nextScript = `
local value = redis.call("INCR", KEYS[1])
local base = tonumber(redis.call("GET", KEYS[2]) or "1")
if value < base then
  value = base
  redis.call("SET", KEYS[1], value)
end
redis.call("SET", KEYS[3], ARGV[1])
return value
`

// SequenceStore contador atómico por (tenant, tipo) en Redis.
type SequenceStore struct {
	client goredis.UniversalClient
	script *goredis.Script
	prefix string
	now    func() time.Time
}

// NewSequenceStore construye el store. prefix vacío usa "seq".
func NewSequenceStore(client goredis.UniversalClient, prefix string) *SequenceStore {
	if prefix == "" {
		prefix = "seq"
	}
	return &SequenceStore{
		client: client,
		script: goredis.NewScript(nextScript),
		prefix: prefix,
		now:    time.Now,
	}
}

// NewClient abre la conexión y comprueba que responde.
func NewClient(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// Keys devuelve las claves de valor, base y última actualización de un contador.
func (s *SequenceStore) Keys(tenantID string, kind entity.Kind) (value, base, updated string) {
	k := fmt.Sprintf("%s:{%s:%s}", s.prefix, tenantID, kind)
	return k, k + ":base", k + ":updated"
}

// Next incrementa y devuelve el contador.
func (s *SequenceStore) Next(ctx context.Context, tenantID string, kind entity.Kind) (int64, error) {
	valueKey, baseKey, updatedKey := s.Keys(tenantID, kind)
	value, err := s.script.Run(ctx, s.client,
		[]string{valueKey, baseKey, updatedKey},
		s.now().UTC().Format(time.RFC3339Nano),
	).Int64()
	if err != nil {
		return 0, fmt.Errorf("incrementar secuencia %s/%s: %w", tenantID, kind, err)
	}
	return value, nil
}

// Get lee el contador. (nil, nil) si nunca se usó ni se fijó base.
func (s *SequenceStore) Get(ctx context.Context, tenantID string, kind entity.Kind) (*entity.SequenceCounter, error) {
	valueKey, baseKey, updatedKey := s.Keys(tenantID, kind)
	vals, err := s.client.MGet(ctx, valueKey, baseKey, updatedKey).Result()
	if err != nil {
		return nil, fmt.Errorf("leer secuencia: %w", err)
	}
	if vals[0] == nil && vals[1] == nil {
		return nil, nil
	}
	c := &entity.SequenceCounter{TenantID: tenantID, Kind: kind, Base: 1}
	if c.Value, err = parseInt(vals[0]); err != nil {
		return nil, fmt.Errorf("leer secuencia: valor: %w", err)
	}
	if vals[1] != nil {
		if c.Base, err = parseInt(vals[1]); err != nil {
			return nil, fmt.Errorf("leer secuencia: base: %w", err)
		}
	}
	if ts, ok := vals[2].(string); ok {
		c.UpdatedAt, _ = time.Parse(time.RFC3339Nano, ts)
	}
	return c, nil
}

// SetBase fija el primer valor a emitir. Un contador ya por encima sigue su curso.
func (s *SequenceStore) SetBase(ctx context.Context, tenantID string, kind entity.Kind, base int64) error {
	if base < 1 {
		return errors.New("la base debe ser >= 1")
	}
	_, baseKey, updatedKey := s.Keys(tenantID, kind)
	_, err := s.client.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.Set(ctx, baseKey, base, 0)
		p.Set(ctx, updatedKey, s.now().UTC().Format(time.RFC3339Nano), 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("fijar base de secuencia: %w", err)
	}
	return nil
}

func parseInt(v any) (int64, error) {
	switch x := v.(type) {
	case nil:
		return 0, nil
	case string:
		return strconv.ParseInt(x, 10, 64)
	case int64:
		return x, nil
	default:
		return 0, fmt.Errorf("tipo inesperado %T", v)
	}
}
