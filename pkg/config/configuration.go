// Copyright 2021 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap/zapcore"

	"github.com/matrixorigin/advvec/pkg/common/malloc"
	"github.com/matrixorigin/advvec/pkg/common/moerr"
	"github.com/matrixorigin/advvec/pkg/common/mpool"
	"github.com/matrixorigin/advvec/pkg/logutil"
)

const (
	defaultLogLevel  = "info"
	defaultLogFormat = "console"
	defaultMaxSize   = 512

	defaultPoolTag = "advvec"
)

// MPoolParameters configures the default memory pool.
type MPoolParameters struct {
	// Cap in bytes, 0 means unlimited
	Cap int64 `toml:"cap" env:"CAP"`
}

// Parameters of the process
type Parameters struct {
	Log    logutil.LogConfig `toml:"log" envPrefix:"ADVVEC_LOG_"`
	Malloc malloc.Config     `toml:"malloc" envPrefix:"ADVVEC_MALLOC_"`
	MPool  MPoolParameters   `toml:"mpool" envPrefix:"ADVVEC_MPOOL_"`
}

// LoadFile decodes the toml file at path into p and applies environment
// overrides on top.
func (p *Parameters) LoadFile(path string) error {
	if path != "" {
		if _, err := toml.DecodeFile(path, p); err != nil {
			return moerr.NewBadConfigNoCtx("decode %s: %v", path, err)
		}
	}
	return p.loadEnv()
}

// LoadString is LoadFile for an in-memory toml document.
func (p *Parameters) LoadString(data string) error {
	if _, err := toml.Decode(data, p); err != nil {
		return moerr.NewBadConfigNoCtx("decode: %v", err)
	}
	return p.loadEnv()
}

func (p *Parameters) loadEnv() error {
	if err := env.Parse(p); err != nil {
		return moerr.NewBadConfigNoCtx("parse env: %v", err)
	}
	return nil
}

func (p *Parameters) SetDefaultValues() {
	if p.Log.Level == "" {
		p.Log.Level = defaultLogLevel
	}
	if p.Log.Format == "" {
		p.Log.Format = defaultLogFormat
	}
	if p.Log.MaxSize == 0 {
		p.Log.MaxSize = defaultMaxSize
	}
	p.Malloc.SetDefaultValues()
}

func (p *Parameters) Validate() error {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(p.Log.Level)); err != nil {
		return moerr.NewBadConfigNoCtx("log level %q", p.Log.Level)
	}
	switch p.Log.Format {
	case "console", "json":
	default:
		return moerr.NewBadConfigNoCtx("log format %q", p.Log.Format)
	}
	if p.Log.MaxSize < 0 || p.Log.MaxDays < 0 || p.Log.MaxBackups < 0 {
		return moerr.NewBadConfigNoCtx("negative log rotation setting")
	}
	if err := p.Malloc.Validate(); err != nil {
		return err
	}
	if p.MPool.Cap < 0 {
		return moerr.NewBadConfigNoCtx("mpool cap %d", p.MPool.Cap)
	}
	return nil
}

// Setup installs the global logger, the default allocator and the default
// pool described by p.
func (p *Parameters) Setup() error {
	p.SetDefaultValues()
	if err := p.Validate(); err != nil {
		return err
	}

	logutil.SetupMOLogger(&p.Log)

	allocator, err := malloc.NewAllocator(p.Malloc)
	if err != nil {
		return err
	}
	if p.Malloc.EnableMetrics {
		if err := malloc.RegisterMetrics(prometheus.DefaultRegisterer); err != nil {
			return err
		}
	}
	malloc.SetDefaultAllocator(allocator)

	mp, err := mpool.NewMPool(defaultPoolTag, p.MPool.Cap, 0)
	if err != nil {
		return err
	}
	mpool.SetDefault(mp)
	return nil
}
