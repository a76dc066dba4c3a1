package engine_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/mrmlscene/internal/config"
	"github.com/gyaneshwarpardhi/mrmlscene/internal/engine"
	"github.com/gyaneshwarpardhi/mrmlscene/internal/mrml"
	"github.com/gyaneshwarpardhi/mrmlscene/internal/storage"
)

func TestDoSerializesConcurrentCallers(t *testing.T) {
	e := engine.New(context.Background(), engine.NewScene(), 0)
	defer e.Close()

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := e.Do(context.Background(), func(s *mrml.Scene) error {
				s.AddNode(mrml.NewGenericNode("NodeHelper", "Helper"))
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	var ids []string
	require.NoError(t, e.Do(context.Background(), func(s *mrml.Scene) error {
		for _, n := range s.Nodes() {
			ids = append(ids, n.Base().ID())
		}
		return nil
	}))
	assert.Len(t, ids, 50)
	assert.Contains(t, ids, "NodeHelper50")
}

func TestDoReturnsErrorsAndRecoversPanics(t *testing.T) {
	e := engine.New(context.Background(), engine.NewScene(), 0)
	defer e.Close()

	sentinel := errors.New("boom")
	assert.ErrorIs(t, e.Do(context.Background(), func(*mrml.Scene) error { return sentinel }), sentinel)
	err := e.Do(context.Background(), func(*mrml.Scene) error { panic("bad node") })
	assert.ErrorContains(t, err, "bad node")
	assert.NoError(t, e.Do(context.Background(), func(*mrml.Scene) error { return nil }))
}

func TestDoHonoursContext(t *testing.T) {
	e := engine.New(context.Background(), engine.NewScene(), 0)
	defer e.Close()

	release := make(chan struct{})
	started := make(chan struct{})
	go e.Do(context.Background(), func(*mrml.Scene) error {
		close(started)
		<-release
		return nil
	})
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, e.Do(ctx, func(*mrml.Scene) error { return nil }), context.Canceled)
	close(release)
}

func TestClose(t *testing.T) {
	e := engine.New(context.Background(), engine.NewScene(), 0)
	e.Close()
	e.Close()
	assert.ErrorIs(t, e.Do(context.Background(), func(*mrml.Scene) error { return nil }), engine.ErrClosed)
}

func TestDoAfterContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	e := engine.New(ctx, engine.NewScene(), 0)
	defer e.Close()

	cancel()
	assert.ErrorIs(t, e.Do(context.Background(), func(*mrml.Scene) error { return nil }), engine.ErrClosed)
}

func TestQueuedDoReturnsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	e := engine.New(ctx, engine.NewScene(), 0)
	defer e.Close()

	release := make(chan struct{})
	started := make(chan struct{})
	go e.Do(context.Background(), func(*mrml.Scene) error {
		close(started)
		<-release
		return nil
	})
	<-started

	result := make(chan error, 1)
	go func() {
		result <- e.Do(context.Background(), func(*mrml.Scene) error { return nil })
	}()
	require.Eventually(t, func() bool { return e.QueueUtilization() > 0 }, 5*time.Second, time.Millisecond)
	cancel()
	close(release)

	select {
	case err := <-result:
		if err != nil {
			assert.ErrorIs(t, err, engine.ErrClosed)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Do blocked after the engine context was cancelled")
	}
}

func TestConfigure(t *testing.T) {
	s := engine.NewScene()
	require.NoError(t, engine.Configure(s, config.SceneConf{
		SingletonMerge: config.MergeRegular,
		Classes: []config.ClassDef{
			{Name: "ModelNode", Tag: "Model"},
			{Name: "LayoutNode", Tag: "Layout", SingletonTag: "Singleton"},
		},
	}))

	assert.Equal(t, mrml.CopyRegular, s.SingletonMergeMode())
	assert.Subset(t, s.Registry().ClassNames(), []string{"HierarchyNode", "ModelNode", "LayoutNode"})

	first := s.AddNode(s.CreateNodeByClass("LayoutNode"))
	second := s.AddNode(s.CreateNodeByClass("LayoutNode"))
	assert.Same(t, first, second)
	assert.Equal(t, "LayoutNodeSingleton", first.Base().ID())

	err := engine.Configure(s, config.SceneConf{Classes: []config.ClassDef{{Name: "Other", Tag: "Model"}}})
	assert.Error(t, err)
	assert.Equal(t, mrml.CopySingleModified, s.SingletonMergeMode())
}

func TestPreload(t *testing.T) {
	src := engine.NewScene()
	a := src.AddNode(mrml.NewGenericNode("NodeHelper", "Helper"))
	b := mrml.NewGenericNode("NodeHelper", "Helper")
	b.AddReferenceID("peer", a.Base().ID())
	src.AddNode(b)
	var buf bytes.Buffer
	require.NoError(t, storage.WriteScene(&buf, src))
	path := filepath.Join(t.TempDir(), "base.yaml")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	dst := engine.NewScene()
	require.NoError(t, dst.RegisterNodeClass(mrml.NewGenericNode("NodeHelper", "Helper")))
	require.NoError(t, engine.Preload(dst, []string{path, path}))

	assert.Equal(t, 4, dst.NumberOfNodes())
	assert.Equal(t, "NodeHelper3", dst.NthNode(3).Base().ReferenceID("peer"))

	assert.Error(t, engine.Preload(dst, []string{filepath.Join(t.TempDir(), "missing.yaml")}))
}
