package buddy

import "fmt"

import "github.com/bnclabs/golog"

func errorf(format string, v ...interface{}) {
	log.Errorf(format, v...)
}

func panicerr(fmsg string, args ...interface{}) {
	panic(fmt.Errorf(fmsg, args...))
}
