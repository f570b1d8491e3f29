package service

import (
	"github.com/spec-kit/auth-service/internal/repository/repotest"
)

type (
	memoryStore     = repotest.Store
	fakeUserRepo    = repotest.UserRepo
	fakeRoleRepo    = repotest.RoleRepo
	fakeRefreshRepo = repotest.RefreshTokenRepo
)

func newMemoryStore() *memoryStore { return repotest.NewStore() }
