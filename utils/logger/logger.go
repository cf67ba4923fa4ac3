package logger

import (
	"bytes"
	"fmt"
	"reflect"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

type stringer interface {
	String() string
}

type logPair struct {
	logFn func(...any)
	obj   string
	msg   string
}

const (
	logSize  = 1000
	objWidth = 20
)

var (
	logCh   = make(chan logPair, logSize)
	started atomic.Bool
)

func objToString(obj any) (objStr string) {
	if obj == nil {
		objStr = "NIL"
	} else if stringerObj, ok := obj.(stringer); ok {
		objStr = stringerObj.String()
	} else if objStr, ok = obj.(string); ok {
	} else {
		t := reflect.TypeOf(obj)
		for t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		objStr = t.Name()
	}
	if len(objStr) > objWidth {
		objStr = objStr[:objWidth]
	}
	return
}

func format(obj, msg string) string {
	return fmt.Sprintf("|%20s|%-100s", obj, msg)
}

// Init sets the level and starts the asynchronous sink. Messages logged before
// Init are written synchronously.
func Init(lvl logrus.Level) {
	logrus.SetLevel(lvl)
	logrus.SetFormatter(&logrus.TextFormatter{
		ForceColors:     true,
		FullTimestamp:   true,
		PadLevelText:    true,
		TimestampFormat: "2006/02/01 15:04:05",
	})

	if !started.CompareAndSwap(false, true) {
		return
	}

	go func() {
		sb := new(bytes.Buffer)
		for logPair := range logCh {
			sb.WriteString(format(logPair.obj, logPair.msg))
			logPair.logFn(sb.String())
			sb.Reset()
		}
	}()
}

func push(lvl logrus.Level, fn func(...any), object any, message string) {
	if logrus.GetLevel() < lvl {
		return
	}
	pair := logPair{
		logFn: fn,
		obj:   objToString(object),
		msg:   message,
	}
	if !started.Load() {
		pair.logFn(format(pair.obj, pair.msg))
		return
	}
	logCh <- pair
}

func Trace(object any, message string) {
	push(logrus.TraceLevel, logrus.Trace, object, message)
}

func Tracef(object any, message string, args ...any) {
	if logrus.GetLevel() < logrus.TraceLevel {
		return
	}
	push(logrus.TraceLevel, logrus.Trace, object, fmt.Sprintf(message, args...))
}

func Debug(object any, message string) {
	push(logrus.DebugLevel, logrus.Debug, object, message)
}

func Debugf(object any, message string, args ...any) {
	if logrus.GetLevel() < logrus.DebugLevel {
		return
	}
	push(logrus.DebugLevel, logrus.Debug, object, fmt.Sprintf(message, args...))
}

func Info(object any, message string) {
	push(logrus.InfoLevel, logrus.Info, object, message)
}

func Infof(object any, message string, args ...any) {
	if logrus.GetLevel() < logrus.InfoLevel {
		return
	}
	push(logrus.InfoLevel, logrus.Info, object, fmt.Sprintf(message, args...))
}

func Warning(object any, message string) {
	push(logrus.WarnLevel, logrus.Warning, object, message)
}

func Warningf(object any, message string, args ...any) {
	if logrus.GetLevel() < logrus.WarnLevel {
		return
	}
	push(logrus.WarnLevel, logrus.Warning, object, fmt.Sprintf(message, args...))
}

func Error(object any, message string) {
	push(logrus.ErrorLevel, logrus.Error, object, message)
}

func Errorf(object any, message string, args ...any) {
	if logrus.GetLevel() < logrus.ErrorLevel {
		return
	}
	push(logrus.ErrorLevel, logrus.Error, object, fmt.Sprintf(message, args...))
}

func Fatal(object any, message string) {
	logrus.Fatal(format(objToString(object), message))
}

func Fatalf(object any, message string, args ...any) {
	logrus.Fatal(format(objToString(object), fmt.Sprintf(message, args...)))
}
