package taskpool_test

import (
	"fmt"
	"sync/atomic"

	taskpool "github.com/joeycumines/go-taskpool"
)

func ExampleConfig_Build() {
	pool, err := taskpool.NewConfig().
		ThreadCount(4).
		Build()
	if err != nil {
		panic(err)
	}

	var counter atomic.Int64
	for range 100 {
		if err := pool.Spawn(taskpool.Func(func() { counter.Add(1) })); err != nil {
			panic(err)
		}
	}

	if err := pool.Close(); err != nil {
		panic(err)
	}
	fmt.Println(counter.Load())

	//output:
	//100
}

func ExampleSpawnBlocking() {
	pool := taskpool.NewConfig().MustBuild()
	defer pool.Close()

	v, err := taskpool.SpawnBlocking(pool, func() int { return 42 })
	fmt.Println(v, err)

	//output:
	//42 <nil>
}

func ExampleWaker() {
	pool := taskpool.NewConfig().MustBuild()

	// completes on its third poll
	var polls int
	_ = pool.SpawnFunc(func(cx *taskpool.Context) taskpool.PollResult {
		polls++
		if polls < 3 {
			cx.Waker().Wake()
			return taskpool.Pending
		}
		return taskpool.Ready
	})

	_ = pool.Close()
	fmt.Println(polls)

	//output:
	//3
}
