/* Copyright 2026 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package main is a little step shell for poking at an engine.  It
// reads one step per line from stdin (or -e for a single step):
//
//	echo "name = 1 + 2" | gauntlet
//	gauntlet -e "assert 2 < 3"
//
// Step forms:
//
//	<name> = <expression>
//	assert <expression>
//	match <lhs> == <rhs>          (also !=, contains, !contains)
//	call <function-or-feature> [arg]
//	url <expression>
//	method <get|post|put|delete|...>
//	status <code>
//	print <expression>
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/Comcast/gauntlet/core"
	gojart "github.com/Comcast/gauntlet/interpreters/goja"
	"github.com/Comcast/gauntlet/match"
	"github.com/Comcast/gauntlet/web"
)

func main() {
	var (
		expr    = flag.String("e", "", "execute a single step and exit")
		trace   = flag.Bool("v", false, "trace-level logging")
		timeout = flag.Duration("timeout", 0, "read timeout for http calls")
	)
	flag.Parse()

	core.TraceEnabled = *trace

	config := core.NewConfig()
	config.RuntimeFactory = func() core.ScriptRuntime {
		return gojart.New()
	}
	config.ClientFactory = web.NewClient
	if 0 < *timeout {
		config.ReadTimeout = *timeout
	}

	e := core.NewEngine(config)
	e.Matcher = match.DefaultMatcher
	e.Init()

	if *expr != "" {
		if err := step(e, *expr); err != nil {
			log.Fatal(err)
		}
		if e.IsFailed() {
			log.Fatal(e.FailedReason())
		}
		return
	}

	in := bufio.NewScanner(os.Stdin)
	for in.Scan() {
		line := strings.TrimSpace(in.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := step(e, line); err != nil {
			log.Fatal(err)
		}
		if e.IsFailed() {
			log.Fatal(e.FailedReason())
		}
	}
	if err := in.Err(); err != nil {
		log.Fatal(err)
	}
}

func step(e *core.Engine, line string) error {
	verb, rest := line, ""
	if pos := strings.IndexByte(line, ' '); pos != -1 {
		verb, rest = line[:pos], strings.TrimSpace(line[pos+1:])
	}
	switch verb {
	case "assert":
		return e.AssertTrue(rest)
	case "match":
		return matchStep(e, rest)
	case "call":
		result, err := e.CallText(false, rest, false)
		if err != nil {
			return err
		}
		fmt.Println(result.AsString())
		return nil
	case "url":
		return e.URL(rest)
	case "status":
		code, err := strconv.Atoi(rest)
		if err != nil {
			return fmt.Errorf("bad status: %s", rest)
		}
		return e.Status(code)
	case "print":
		v, err := e.Eval(rest)
		if err != nil {
			return err
		}
		fmt.Println(v.AsString())
		return nil
	case "method":
		return e.Method(rest)
	}
	if pos := strings.Index(line, "="); pos != -1 && core.IsVariable(strings.TrimSpace(line[:pos])) {
		return e.Assign(core.AssignAuto, strings.TrimSpace(line[:pos]), strings.TrimSpace(line[pos+1:]))
	}
	v, err := e.Eval(line)
	if err != nil {
		return err
	}
	fmt.Println(v.AsString())
	return nil
}

func matchStep(e *core.Engine, rest string) error {
	for _, op := range []struct {
		token string
		t     core.MatchType
	}{
		{" !contains ", core.MatchNotContains},
		{" contains only ", core.MatchContainsOnly},
		{" contains ", core.MatchContains},
		{" != ", core.MatchNotEquals},
		{" == ", core.MatchEquals},
	} {
		if pos := strings.Index(rest, op.token); pos != -1 {
			lhs := strings.TrimSpace(rest[:pos])
			rhs := strings.TrimSpace(rest[pos+len(op.token):])
			return e.Match(op.t, lhs, "", rhs)
		}
	}
	return fmt.Errorf("bad match step: %s", rest)
}
