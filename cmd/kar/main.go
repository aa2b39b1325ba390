// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"errors"
	"flag"
	"os"
	"os/user"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/koru3d/koru/utility/kar"
)

func currentUserName() string {
	u, err := user.Current()
	if err != nil {
		return "unknown"
	}
	return u.Username
}

var (
	author   = flag.String("author", currentUserName(), "Set the author of the package when compressing")
	version  = flag.Int64("version", 1, "Archive version number to create it with")
	extract  = flag.String("e", "", "Extract the file given")
	compress = flag.String("c", "", "Compress the given file/folder")
	dstFile  = flag.String("f", "out.kar", "Destination file, or directory when extracting")
	list     = flag.String("l", "", "List the files in the archive given")
	silent   = flag.Bool("s", false, "Silent")
)

func main() {
	flag.Parse()
	if *silent {
		log.SetLevel(log.WarnLevel)
	}

	ops := 0
	for _, op := range []string{*extract, *compress, *list} {
		if op != "" {
			ops++
		}
	}
	if ops > 1 {
		log.Fatal(errors.New("only one operation at a time"))
	}

	var err error
	switch {
	case *extract != "":
		err = extractFiles(*extract, *dstFile)
	case *compress != "":
		err = compressFiles(*compress, *dstFile)
	case *list != "":
		err = listFiles(*list)
	default:
		flag.PrintDefaults()
	}
	if err != nil {
		log.Fatal(err)
	}
}

func compressFiles(src, dstPath string) error {
	if _, err := os.Stat(dstPath); err == nil {
		return errors.New("destination file exists, will not overwrite")
	}

	var filesToCompress []string
	err := filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		filesToCompress = append(filesToCompress, path)
		return nil
	})
	if err != nil {
		return err
	}

	karBuilder, err := kar.NewBuilder(kar.Header{
		Author:      *author,
		DateCreated: time.Now().Unix(),
		Version:     *version,
	})
	if err != nil {
		return err
	}
	defer karBuilder.Close()

	for _, ftc := range filesToCompress {
		name, err := filepath.Rel(src, ftc)
		if err != nil || name == "." {
			name = filepath.Base(ftc)
		}
		if err := addFile(karBuilder, filepath.ToSlash(name), ftc); err != nil {
			return err
		}
		log.WithField("file", name).Info("added")
	}

	dst, err := os.Create(dstPath)
	if err != nil {
		return err
	}
	written, err := karBuilder.WriteTo(dst)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"files": karBuilder.Len(),
		"bytes": written,
	}).Info("archive written")
	return nil
}

func addFile(b *kar.Builder, name, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return b.Add(name, f)
}

func extractFiles(src, dstDir string) error {
	ar, err := kar.OpenFile(src)
	if err != nil {
		return err
	}
	defer ar.Close()

	for _, name := range ar.Names() {
		data, err := ar.ReadAll(name)
		if err != nil {
			return err
		}
		path := filepath.Join(dstDir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return err
		}
		log.WithField("file", name).Info("extracted")
	}
	return nil
}

func listFiles(src string) error {
	ar, err := kar.OpenFile(src)
	if err != nil {
		return err
	}
	defer ar.Close()

	header := ar.Header()
	log.WithFields(log.Fields{
		"author":  header.Author,
		"created": time.Unix(header.DateCreated, 0).Format(time.RFC3339),
		"version": header.Version,
	}).Info(src)
	for _, name := range ar.Names() {
		e, _ := ar.Stat(name)
		log.WithFields(log.Fields{
			"size":       e.Size,
			"compressed": e.CompressedSize,
		}).Info(name)
	}
	return nil
}
